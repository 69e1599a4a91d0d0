package memory

import (
	"testing"

	"github.com/probaah/probaah/pkg/ports"
)

func TestMemoryStoreContract(t *testing.T) {
	ports.RunReportStoreContract(t, New())
}
