// Package request turns plain-language workflow requests into structured
// intents. The vocabulary is deliberately small and deterministic: verb
// patterns select the intent, entity patterns pull out counts, species,
// densities and file paths. Anything essential that cannot be extracted
// produces a clarification failure naming exactly what is missing — the
// parser never guesses.
package request

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/substitution"
)

// Intent classifies one request clause.
type Intent string

const (
	IntentSubstitute Intent = "substitute"
	IntentValidate   Intent = "validate"
	IntentAnalyze    Intent = "analyze"
	IntentPresent    Intent = "present"
	IntentStatus     Intent = "status"
)

// Parsed is the structured form of one request, possibly spanning several
// conjoined clauses ("replace ... then analyze the result").
type Parsed struct {
	// Text is the original request.
	Text string
	// Intents lists the recognized clause intents, in order.
	Intents []Intent
	// Substitution is set when a substitute clause was recognized.
	Substitution *substitution.Request
	// Analyze and Present request follow-up steps on the result.
	Analyze bool
	Present bool
	// ValidatePath names a file to validate when no substitution is part of
	// the request ("validate packed.xyz").
	ValidatePath string
	// UseLastRun means the request refers to a previous run's output
	// ("analyze the last run") instead of a fresh substitution.
	UseLastRun bool
}

var (
	verbSubstitute = regexp.MustCompile(`(?i)\b(substitute|replace|swap|exchange|remove|add)\b`)
	verbValidate   = regexp.MustCompile(`(?i)\b(validate|verify|check|inspect|visuali[sz]e)\b`)
	verbAnalyze    = regexp.MustCompile(`(?i)\b(analy[sz]e|analysis)\b`)
	verbPresent    = regexp.MustCompile(`(?i)\b(present|presentation|slides?|report)\b`)
	verbStatus     = regexp.MustCompile(`(?i)\b(status|available|installed|tools?)\b`)

	reCount    = regexp.MustCompile(`(?:^|\s)(\d+)\s`)
	reDensity  = regexp.MustCompile(`(?i)\bdensity\s*(?:of|=|:)?\s*([0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)`)
	rePath     = regexp.MustCompile(`(?i)(\S+\.(?:xyz|pdb|bgf))\b`)
	reGeometry = regexp.MustCompile(`(?i)\b((?:gas-box|final-box|offset-[xyz]):\S+)`)
	reLastRun  = regexp.MustCompile(`(?i)\b(last|previous|latest)\s+(run|result|structure|output)\b|\bthat\s+(run|structure)\b`)
	reWith     = regexp.MustCompile(`(?i)\bwith\b|\bby\b|\bfor\b|\badd\b`)

	clauseSplit = regexp.MustCompile(`(?i)\s*(?:;|,?\s+and\s+then\s+|,?\s+then\s+)\s*`)
)

// speciesAliases maps request words to formulas. Multi-word aliases are
// matched before single words.
var speciesAliases = []struct {
	pattern *regexp.Regexp
	formula string
}{
	{regexp.MustCompile(`(?i)\bcarbon\s+dioxide\b|\bco2\b`), "CO2"},
	{regexp.MustCompile(`(?i)\bwater\b|\bh2o\b`), "H2O"},
	{regexp.MustCompile(`(?i)\boxygen\b|\bo2\b`), "O2"},
	{regexp.MustCompile(`(?i)\bnitrogen\b|\bn2\b`), "N2"},
	{regexp.MustCompile(`(?i)\bhydrogen\b|\bh2\b`), "H2"},
	// Bare atomic species; case-sensitive so prose words are not mistaken
	// for element symbols.
	{regexp.MustCompile(`\bO\b`), "O"},
	{regexp.MustCompile(`\bN\b`), "N"},
	{regexp.MustCompile(`\bH\b`), "H"},
}

// Parse converts a request into its structured form. A request whose
// essentials cannot be extracted fails with a clarification error listing
// every missing piece at once.
func Parse(text string) (*Parsed, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.NewFailure(domain.FailNeedsClarification,
			fmt.Errorf("empty request"),
			"describe what to do, e.g. \"replace 50 water molecules with O2 at density 0.0005 in slab.pdb\"")
	}

	parsed := &Parsed{Text: trimmed}
	clauses := clauseSplit.Split(trimmed, -1)
	for _, clause := range clauses {
		intent, ok := classify(clause)
		if !ok {
			continue
		}
		parsed.Intents = append(parsed.Intents, intent)
		switch intent {
		case IntentAnalyze:
			parsed.Analyze = true
		case IntentPresent:
			parsed.Present = true
		}
	}
	if len(parsed.Intents) == 0 {
		return nil, domain.NewFailure(domain.FailNeedsClarification,
			fmt.Errorf("could not recognize an action in %q", trimmed),
			"supported actions: substitute/replace, validate, analyze, present, status")
	}
	if reLastRun.MatchString(trimmed) {
		parsed.UseLastRun = true
	}

	if hasIntent(parsed.Intents, IntentSubstitute) {
		sub, err := extractSubstitution(trimmed, hasIntent(parsed.Intents, IntentValidate))
		if err != nil {
			return nil, err
		}
		parsed.Substitution = sub
	} else if hasIntent(parsed.Intents, IntentValidate) {
		if m := rePath.FindStringSubmatch(trimmed); m != nil {
			parsed.ValidatePath = m[1]
		}
	}
	return parsed, nil
}

func classify(clause string) (Intent, bool) {
	switch {
	case verbSubstitute.MatchString(clause):
		return IntentSubstitute, true
	case verbAnalyze.MatchString(clause):
		return IntentAnalyze, true
	case verbPresent.MatchString(clause):
		return IntentPresent, true
	case verbValidate.MatchString(clause):
		return IntentValidate, true
	case verbStatus.MatchString(clause):
		return IntentStatus, true
	}
	return "", false
}

func hasIntent(intents []Intent, want Intent) bool {
	for _, i := range intents {
		if i == want {
			return true
		}
	}
	return false
}

// extractSubstitution pulls the substitution entities out of the request.
func extractSubstitution(text string, validate bool) (*substitution.Request, error) {
	req := &substitution.Request{Validate: validate}
	var missing []string

	if m := rePath.FindStringSubmatch(text); m != nil {
		req.InputPath = m[1]
	} else {
		missing = append(missing, "the structure file (xyz, pdb or bgf)")
	}

	if m := reCount.FindStringSubmatch(text); m != nil {
		req.Count, _ = strconv.Atoi(m[1])
	} else {
		missing = append(missing, "how many gas molecules to place")
	}

	if m := reDensity.FindStringSubmatch(text); m != nil {
		req.Density, _ = strconv.ParseFloat(m[1], 64)
	} else {
		missing = append(missing, "the target density in g/cm³")
	}

	req.Remove, req.Gas = splitSpecies(text)
	if req.Remove == "" {
		missing = append(missing, "which species to remove")
	}
	if req.Gas == "" {
		missing = append(missing, "which gas to pack in")
	}
	if req.Remove != "" && req.Remove == req.Gas {
		missing = append(missing, "distinct species to remove and to pack (both resolved to "+req.Gas+")")
	}

	if m := reGeometry.FindAllStringSubmatch(text, -1); m != nil {
		parts := make([]string, 0, len(m))
		for _, g := range m {
			parts = append(parts, g[1])
		}
		req.Geometry = strings.Join(parts, ",")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.NewFailure(domain.FailNeedsClarification,
			fmt.Errorf("request is missing: %s", strings.Join(missing, "; ")),
			"example: \"replace 50 water molecules with O2 at density 0.0005 in slab.pdb\"")
	}
	return req, nil
}

// splitSpecies resolves the removed species and the replacement gas. The
// species before the with/by connective is removed, the one after is packed;
// without a connective, the first mentioned is removed and the second packed.
func splitSpecies(text string) (remove, gas string) {
	before, after := text, ""
	if loc := reWith.FindStringIndex(text); loc != nil {
		before, after = text[:loc[0]], text[loc[1]:]
	}

	remove = firstSpecies(before)
	gas = firstSpecies(after)
	if gas == "" && after == "" {
		// No connective: fall back to mention order.
		mentions := allSpecies(text)
		if len(mentions) >= 2 {
			remove, gas = mentions[0], mentions[1]
		}
	}
	return remove, gas
}

func firstSpecies(text string) string {
	best, bestPos := "", len(text) + 1
	for _, alias := range speciesAliases {
		if loc := alias.pattern.FindStringIndex(text); loc != nil && loc[0] < bestPos {
			best, bestPos = alias.formula, loc[0]
		}
	}
	return best
}

func allSpecies(text string) []string {
	type hit struct {
		pos     int
		formula string
	}
	var hits []hit
	for _, alias := range speciesAliases {
		for _, loc := range alias.pattern.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{pos: loc[0], formula: alias.formula})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.formula)
	}
	return out
}
