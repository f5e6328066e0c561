package state

import (
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
)

// #region cow-record
// CowRecord is a versioned snapshot of one cow.
type CowRecord struct {
	VersionID      string
	ParentID       string
	CowID          string
	HerdID         string
	State          dairy.State
	Age            int
	AgeAtFirstHeat int // 0 when the cow has not had its first heat
	Precision      dairy.Precision
	CreatedAt      time.Time
	Note           string
}
// #endregion cow-record

// #region version-with-generation
// VersionWithGeneration pairs a cow version with the last chain generation logged for it.
type VersionWithGeneration struct {
	CowRecord
	CacheKey string
	Outcome  string
	States   int
}
// #endregion version-with-generation
