package cli

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/iterenrich/pkg/catalog"
	"github.com/matzehuels/iterenrich/pkg/config"
	"github.com/matzehuels/iterenrich/pkg/geneset"
)

// inputs holds everything an analysis command reads before running.
type inputs struct {
	geneSets   []*geneset.GeneSet
	background *geneset.Background
	libraries  []*geneset.Library
}

// loadInputs reads the background first, then gene sets (validated against
// it) and libraries. Library and background files given on the command line
// take precedence over the catalog; the catalog is only opened when needed.
func loadInputs(logger *log.Logger, cfg *config.Config, opts *analyzeOpts) (*inputs, error) {
	var cat *catalog.Catalog
	openCat := func() (*catalog.Catalog, error) {
		if cat != nil {
			return cat, nil
		}
		c, _, err := openCatalog(cfg)
		if err != nil {
			return nil, err
		}
		cat = c
		return cat, nil
	}

	bg, err := loadBackground(logger, opts, openCat)
	if err != nil {
		return nil, err
	}

	libs, err := loadLibraries(opts, openCat)
	if err != nil {
		return nil, err
	}

	sets := make([]*geneset.GeneSet, 0, len(opts.geneSets))
	for _, path := range opts.geneSets {
		gs, v, err := geneset.ReadGeneSetFile(path, bg)
		if err != nil {
			return nil, fmt.Errorf("gene set %s: %w", path, err)
		}
		reportValidation(logger, gs.Name(), v)
		sets = append(sets, gs)
	}
	return &inputs{geneSets: sets, background: bg, libraries: libs}, nil
}

func loadBackground(logger *log.Logger, opts *analyzeOpts, openCat func() (*catalog.Catalog, error)) (*geneset.Background, error) {
	var (
		bg  *geneset.Background
		v   geneset.Validation
		err error
	)
	if opts.background != "" {
		bg, v, err = geneset.ReadBackgroundFile(opts.background)
	} else {
		cat, cerr := openCat()
		if cerr != nil {
			return nil, cerr
		}
		bg, v, err = cat.OpenBackground(opts.backgroundName)
	}
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	reportValidation(logger, bg.Name(), v)
	return bg, nil
}

func loadLibraries(opts *analyzeOpts, openCat func() (*catalog.Catalog, error)) ([]*geneset.Library, error) {
	var libs []*geneset.Library
	for _, path := range opts.libraries {
		lib, err := geneset.ReadLibraryFile(path)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", path, err)
		}
		libs = append(libs, lib)
	}

	names := opts.libraryNames
	if len(names) == 0 && len(libs) > 0 {
		return libs, nil
	}
	cat, err := openCat()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		for _, l := range cat.Active() {
			names = append(names, l.Name)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no libraries: pass --library or activate catalog libraries")
		}
	}
	for _, name := range names {
		lib, err := cat.OpenLibrary(name)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", name, err)
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// reportValidation logs identifiers dropped while reading name.
func reportValidation(logger *log.Logger, name string, v geneset.Validation) {
	if v.Dropped() == 0 {
		return
	}
	logger.Warn("dropped identifiers",
		"input", name,
		"invalid", len(v.Invalid),
		"duplicates", len(v.Duplicates),
		"not_in_background", len(v.NotInBackground))
	if len(v.NotInBackground) > 0 {
		logger.Debug("not in background", "input", name, "genes", v.NotInBackground)
	}
}
