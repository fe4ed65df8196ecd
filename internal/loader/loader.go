// Package loader turns a directory of declarative model files into the seed
// handed to the model store.
//
// Each file declares {name, algorithm, children}. A file with children is an
// internal node; a file with only an algorithm is a leaf. Child names that
// no file declares become leaf placeholders carrying AlgorithmUndefined.
package loader

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/modeltree/internal/checksum"
	"github.com/starford/modeltree/internal/models"
	"github.com/starford/modeltree/internal/storage"
)

// Result is everything the store needs to take ownership of the tree.
type Result struct {
	Models map[string]*models.Model
	Root   string
	// Sources lists the files the models came from.
	Sources []models.SourceMeta
	// Fingerprint identifies the directory contents that were loaded.
	Fingerprint string
	// Synthesized counts placeholder leaves created for undeclared children.
	Synthesized int
}

// Load reads every model file from store. root names the root model; when
// empty the root is the only declared model that no other model references.
func Load(store storage.Provider, root string, logger *slog.Logger) (*Result, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	declared := make(map[string]*models.Model, len(metas))
	origin := make(map[string]string, len(metas))
	digests := make(map[string]string, len(metas))

	for _, meta := range metas {
		data, err := store.Read(meta.Path)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		digests[meta.Path] = meta.Checksum

		fm, err := parseFile(meta.Path, data)
		if err != nil {
			return nil, err
		}
		if prev, dup := origin[fm.Name]; dup {
			return nil, fmt.Errorf("%w: model %q declared in both %s and %s",
				ErrInvalidModel, fm.Name, prev, meta.Path)
		}

		m, err := toModel(meta.Path, fm, logger)
		if err != nil {
			return nil, err
		}
		declared[fm.Name] = m
		origin[fm.Name] = meta.Path
	}

	all := make(map[string]*models.Model, len(declared))
	for name, m := range declared {
		all[name] = m
	}
	synthesized := 0
	for _, name := range sortedNames(declared) {
		for _, child := range declared[name].Children {
			if _, ok := all[child]; ok {
				continue
			}
			all[child] = models.NewLeaf(child, models.AlgorithmUndefined)
			synthesized++
		}
	}

	resolvedRoot, err := pickRoot(declared, all, root)
	if err != nil {
		return nil, err
	}

	logger.Info("models loaded",
		slog.Int("files", len(metas)),
		slog.Int("models", len(all)),
		slog.Int("placeholders", synthesized),
		slog.String("root", resolvedRoot))

	return &Result{
		Models:      all,
		Root:        resolvedRoot,
		Sources:     metas,
		Fingerprint: checksum.Directory(digests),
		Synthesized: synthesized,
	}, nil
}

func toModel(filePath string, fm *fileModel, logger *slog.Logger) (*models.Model, error) {
	switch {
	case fm.Children != nil:
		if fm.Algorithm != nil {
			logger.Warn("algorithm ignored for model with children",
				slog.String("name", fm.Name), slog.String("path", filePath))
		}
		return models.NewInternal(fm.Name, fm.Children...), nil
	case fm.Algorithm != nil:
		return models.NewLeaf(fm.Name, *fm.Algorithm), nil
	default:
		return nil, fmt.Errorf("%w: %s: model %q declares neither algorithm nor children",
			ErrInvalidModel, filePath, fm.Name)
	}
}

// pickRoot validates a configured root or infers one.
func pickRoot(declared, all map[string]*models.Model, configured string) (string, error) {
	if configured != "" {
		if _, ok := all[configured]; !ok {
			return "", fmt.Errorf("loader: %w: configured root %q is not a known model", ErrNoRoot, configured)
		}
		return configured, nil
	}

	referenced := make(map[string]struct{})
	for _, m := range all {
		for _, c := range m.Children {
			referenced[c] = struct{}{}
		}
	}
	var candidates []string
	for _, name := range sortedNames(declared) {
		if _, ok := referenced[name]; !ok {
			candidates = append(candidates, name)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("loader: %w: no unreferenced model; set models.root", ErrNoRoot)
	default:
		return "", fmt.Errorf("loader: %w: ambiguous root, candidates: %s; set models.root",
			ErrNoRoot, strings.Join(candidates, ", "))
	}
}

func sortedNames(ms map[string]*models.Model) []string {
	out := make([]string, 0, len(ms))
	for k := range ms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
