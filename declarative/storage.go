package declarative

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AdguardTeam/golibs/errors"
	renameio "github.com/google/renameio/v2"
)

// Names of the files of a rule-set directory.
const (
	RulesFileName        = "rules.json"
	MetadataFileName     = "metadata.json"
	LazyMetadataFileName = "lazy_metadata.json"
)

// ErrMetadataVersion is returned when the on-disk metadata has a version
// different from [MetadataVersion].
const ErrMetadataVersion errors.Error = "unsupported metadata version"

// Writer writes rule-sets to the disk.
type Writer struct {
	logger *slog.Logger
}

// NewWriter returns a new *Writer.  logger must not be nil.
func NewWriter(logger *slog.Logger) (w *Writer) {
	return &Writer{
		logger: logger,
	}
}

// Write writes rs into the directory named by its identifier inside dir.  The
// files are replaced atomically.
func (w *Writer) Write(dir string, rs *RuleSet) (err error) {
	rsDir := filepath.Join(dir, rs.ID)
	err = os.MkdirAll(rsDir, 0o755)
	if err != nil {
		return fmt.Errorf("creating rule-set directory: %w", err)
	}

	rulesData := rs.Rules
	if rulesData == nil {
		rulesData = []*Rule{}
	}

	files := []struct {
		value any
		name  string
	}{{
		value: rulesData,
		name:  RulesFileName,
	}, {
		value: rs.Metadata(),
		name:  MetadataFileName,
	}, {
		value: rs.LazyMetadata(),
		name:  LazyMetadataFileName,
	}}

	for _, f := range files {
		err = writeJSON(filepath.Join(rsDir, f.name), f.value)
		if err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	w.logger.Info(
		"wrote rule-set",
		"id", rs.ID,
		"dir", rsDir,
		"rules", rs.Counters.Total,
	)

	return nil
}

// writeJSON encodes v and atomically writes it to the file at path.
func writeJSON(path string, v any) (err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	err = renameio.WriteFile(path, data, 0o644)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}

	return nil
}

// LoadMetadata reads the metadata of the rule-set with the identifier id from
// dir.
func LoadMetadata(dir, id string) (m *Metadata, err error) {
	m = &Metadata{}
	err = readJSON(filepath.Join(dir, id, MetadataFileName), m)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	if m.Version != MetadataVersion {
		return nil, fmt.Errorf(
			"%w: version %d is different from %d",
			ErrMetadataVersion,
			m.Version,
			MetadataVersion,
		)
	}

	return m, nil
}

// LoadLazyMetadata reads the lazy metadata of the rule-set with the
// identifier id from dir.
func LoadLazyMetadata(dir, id string) (m *LazyMetadata, err error) {
	m = &LazyMetadata{}
	err = readJSON(filepath.Join(dir, id, LazyMetadataFileName), m)
	if err != nil {
		return nil, fmt.Errorf("loading lazy metadata: %w", err)
	}

	return m, nil
}

// LoadRules reads the declarative rules of the rule-set with the identifier
// id from dir.
func LoadRules(dir, id string) (rules []*Rule, err error) {
	err = readJSON(filepath.Join(dir, id, RulesFileName), &rules)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	return rules, nil
}

// readJSON decodes the file at path into v.
func readJSON(path string, v any) (err error) {
	file, err := os.Open(path)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}
	defer func() { err = errors.WithDeferred(err, file.Close()) }()

	err = json.NewDecoder(file).Decode(v)
	if err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}

	return nil
}
