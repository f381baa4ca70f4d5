package analysis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// LoadProposals reads a proposals file ({"proposals": [...]}) and checks it
// against the proposals schema.
func LoadProposals(path string) ([]types.Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposals file %s: %w", path, err)
	}
	return DecodeProposals(data)
}

// DecodeProposals validates and decodes a proposals document.
func DecodeProposals(data []byte) ([]types.Proposal, error) {
	if err := schemas.ValidateProposals(data); err != nil {
		return nil, err
	}
	var set types.ProposalSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse proposals: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proposals: %w", err)
	}
	return set.Proposals, nil
}
