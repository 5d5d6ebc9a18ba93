// Package flowstore loads authored flow documents from a directory of JSON
// files. Flow names are normalized to filenames: "Main Flow" lives in
// main_flow.json.
package flowstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Armoredbrain/RoBoTo/bot"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads and decodes one flow document. A missing or malformed document
// is fatal for the turn: there is nothing a flow author's fallback can do
// about a flow that does not exist.
func (s *Store) Load(name string) (bot.Flow, error) {
	path := filepath.Join(s.dir, bot.NormalizeName(name)+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return bot.Flow{}, fmt.Errorf("loading flow %q: %w", name, err)
	}
	var flow bot.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return bot.Flow{}, fmt.Errorf("decoding flow %q: %w", name, err)
	}
	return flow, nil
}

// Catalog lists every stored flow document. Decoding failures skip the file
// rather than failing the listing; Load will surface them when the flow is
// actually needed.
func (s *Store) Catalog() ([]bot.FlowInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing flows in %s: %w", s.dir, err)
	}
	infos := make([]bot.FlowInfo, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("listing flows: %w", err)
		}
		var flow bot.Flow
		if err := json.Unmarshal(raw, &flow); err != nil {
			continue
		}
		infos = append(infos, bot.FlowInfo{
			UID:        flow.UID,
			Name:       flow.Name,
			Label:      flow.Label,
			Filename:   strings.TrimSuffix(filepath.Base(path), ".json"),
			StartingID: flow.StartingID,
		})
	}
	return infos, nil
}
