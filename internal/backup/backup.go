package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/meowmeowtoast/yangyu-report/internal/store"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// ErrUnrecognizedFormat is returned when an import payload matches neither
// the current backup shape nor the legacy flat-key shape.
var ErrUnrecognizedFormat = errors.New("unrecognized backup format")

// Legacy flat keys. Old exports were a dump of browser storage: one flat
// JSON object whose values may themselves be JSON-encoded strings.
const (
	legacyKeyDataSets         = "metaDashboardDataSets"
	legacyKeySelection        = "metaDashboardSelectionState"
	legacyKeyMonthlyFollowers = "metaDashboardMonthlyFollowers"
	legacyKeyBaseFollowers    = "metaDashboardBaseFollowers"
	legacyKeyCompanyProfile   = "metaDashboardCompanyProfile"
	legacyAnalysisPrefix      = "metaDashboardAnalysis_"
)

// Export assembles the full backup document from store state. Missing
// settings documents default to empty sections.
func Export(ctx context.Context, s store.Store) (models.UserData, error) {
	ud := models.EmptyUserData()

	datasets, err := s.ListDataSets(ctx)
	if err != nil {
		return ud, err
	}
	ud.DataSets = datasets

	if err := getOrDefault(ctx, s, store.KeySelection, &ud.Selection); err != nil {
		return ud, err
	}
	if err := getOrDefault(ctx, s, store.KeyMonthlyFollowers, &ud.MonthlyFollowers); err != nil {
		return ud, err
	}
	if err := getOrDefault(ctx, s, store.KeyBaseFollowers, &ud.BaseFollowers); err != nil {
		return ud, err
	}
	if err := getOrDefault(ctx, s, store.KeyCompanyProfile, &ud.CompanyProfile); err != nil {
		return ud, err
	}

	keys, err := s.ListDocumentKeys(ctx, store.AnalysisKeyPrefix)
	if err != nil {
		return ud, err
	}
	for _, key := range keys {
		var analysis models.AnalysisData
		if err := s.GetDocument(ctx, key, &analysis); err != nil {
			return ud, err
		}
		ud.Analyses[strings.TrimPrefix(key, store.AnalysisKeyPrefix)] = analysis
	}

	return ud, nil
}

// Parse decodes an import payload. Decoders run in priority order: the
// current shape first, then the legacy flat-key shape.
func Parse(raw []byte) (models.UserData, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.UserData{}, fmt.Errorf("invalid backup JSON: %w", err)
	}

	if _, ok := probe["dataSets"]; ok {
		return parseModern(raw)
	}
	if isLegacy(probe) {
		return parseLegacy(probe)
	}
	return models.UserData{}, ErrUnrecognizedFormat
}

// Sanitize enforces the post validity rules on imported data: posts with a
// missing publish time or a non-URL permalink are dropped, datasets emptied
// by the filtering are removed, and nil sections become empty ones.
func Sanitize(ud models.UserData) models.UserData {
	clean := models.EmptyUserData()

	for _, ds := range ud.DataSets {
		kept := make([]models.Post, 0, len(ds.Posts))
		for _, p := range ds.Posts {
			if p.PublishTime.IsZero() {
				continue
			}
			if !strings.HasPrefix(p.Permalink, "http") {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		ds.Posts = kept
		if ds.FileNames == nil {
			ds.FileNames = []string{}
		}
		clean.DataSets = append(clean.DataSets, ds)
	}

	if ud.Selection.DataSets != nil {
		clean.Selection.DataSets = ud.Selection.DataSets
	}
	if ud.Selection.Posts != nil {
		clean.Selection.Posts = ud.Selection.Posts
	}
	if ud.MonthlyFollowers != nil {
		clean.MonthlyFollowers = ud.MonthlyFollowers
	}
	clean.BaseFollowers = ud.BaseFollowers
	clean.CompanyProfile = ud.CompanyProfile
	if ud.Analyses != nil {
		clean.Analyses = ud.Analyses
	}

	return clean
}

// Restore replaces all store state with the given document
func Restore(ctx context.Context, s store.Store, ud models.UserData) error {
	if err := s.ClearDataSets(ctx); err != nil {
		return err
	}
	if err := s.DeleteDocuments(ctx, ""); err != nil {
		return err
	}

	for _, ds := range ud.DataSets {
		if err := s.SaveDataSet(ctx, ds); err != nil {
			return err
		}
	}

	if err := s.PutDocument(ctx, store.KeySelection, ud.Selection); err != nil {
		return err
	}
	if err := s.PutDocument(ctx, store.KeyMonthlyFollowers, ud.MonthlyFollowers); err != nil {
		return err
	}
	if err := s.PutDocument(ctx, store.KeyBaseFollowers, ud.BaseFollowers); err != nil {
		return err
	}
	if err := s.PutDocument(ctx, store.KeyCompanyProfile, ud.CompanyProfile); err != nil {
		return err
	}
	for key, analysis := range ud.Analyses {
		if err := s.PutDocument(ctx, store.AnalysisKey(key), analysis); err != nil {
			return err
		}
	}
	return nil
}

func parseModern(raw []byte) (models.UserData, error) {
	var ud models.UserData
	if err := json.Unmarshal(raw, &ud); err != nil {
		return models.UserData{}, fmt.Errorf("invalid backup document: %w", err)
	}
	return ud, nil
}

func isLegacy(probe map[string]json.RawMessage) bool {
	for key := range probe {
		if strings.HasPrefix(key, "metaDashboard") {
			return true
		}
	}
	return false
}

func parseLegacy(probe map[string]json.RawMessage) (models.UserData, error) {
	ud := models.EmptyUserData()

	if raw, ok := probe[legacyKeyDataSets]; ok {
		if err := json.Unmarshal(unwrap(raw), &ud.DataSets); err != nil {
			return ud, fmt.Errorf("invalid legacy datasets: %w", err)
		}
	}
	if raw, ok := probe[legacyKeySelection]; ok {
		if err := json.Unmarshal(unwrap(raw), &ud.Selection); err != nil {
			return ud, fmt.Errorf("invalid legacy selection state: %w", err)
		}
	}
	if raw, ok := probe[legacyKeyMonthlyFollowers]; ok {
		if err := json.Unmarshal(unwrap(raw), &ud.MonthlyFollowers); err != nil {
			return ud, fmt.Errorf("invalid legacy monthly followers: %w", err)
		}
	}
	if raw, ok := probe[legacyKeyBaseFollowers]; ok {
		if err := json.Unmarshal(unwrap(raw), &ud.BaseFollowers); err != nil {
			return ud, fmt.Errorf("invalid legacy base followers: %w", err)
		}
	}
	if raw, ok := probe[legacyKeyCompanyProfile]; ok {
		if err := json.Unmarshal(unwrap(raw), &ud.CompanyProfile); err != nil {
			return ud, fmt.Errorf("invalid legacy company profile: %w", err)
		}
	}

	for key, raw := range probe {
		if !strings.HasPrefix(key, legacyAnalysisPrefix) {
			continue
		}
		storageKey := strings.TrimPrefix(key, legacyAnalysisPrefix)
		var analysis models.AnalysisData
		if err := json.Unmarshal(unwrap(raw), &analysis); err != nil {
			// old builds stored the note as a bare string
			var content string
			if err := json.Unmarshal(unwrap(raw), &content); err != nil {
				return ud, fmt.Errorf("invalid legacy analysis %s: %w", storageKey, err)
			}
			analysis = models.AnalysisData{Content: content}
		}
		ud.Analyses[storageKey] = analysis
	}

	return ud, nil
}

// unwrap peels one level of string encoding: browser storage dumps hold
// JSON-encoded strings as values, so `"{\"a\":1}"` becomes `{"a":1}`.
func unwrap(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return json.RawMessage(trimmed)
	}
	return raw
}

func getOrDefault(ctx context.Context, s store.Store, key string, out interface{}) error {
	err := s.GetDocument(ctx, key, out)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
