package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
	"github.com/matzehuels/iterenrich/pkg/iterative"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
	"github.com/matzehuels/iterenrich/pkg/stats"
)

var validate = validator.New()

// GeneList is a named list of gene identifiers: a gene set or a background.
type GeneList struct {
	Name  string   `json:"name" validate:"required"`
	Genes []string `json:"genes" validate:"required,min=1"`
}

// Term is one annotated term of a library.
type Term struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Genes       []string `json:"genes" validate:"required,min=1"`
}

// Library is a named collection of terms.
type Library struct {
	Name  string `json:"name" validate:"required"`
	Terms []Term `json:"terms" validate:"required,min=1,dive"`
}

// AnalysisOptions overrides the server's default analysis options. Unset
// fields keep the defaults. Iterative fields are ignored by /v1/enrichment.
type AnalysisOptions struct {
	Method        string   `json:"method,omitempty"`
	MinTermSize   *int     `json:"min_term_size,omitempty" validate:"omitempty,gte=0"`
	MaxTermSize   *int     `json:"max_term_size,omitempty" validate:"omitempty,gte=0"`
	PThreshold    *float64 `json:"p_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	MaxIterations *int     `json:"max_iterations,omitempty" validate:"omitempty,gte=0"`
	MinOverlap    *int     `json:"min_overlap,omitempty" validate:"omitempty,gte=1"`
	Refresh       bool     `json:"refresh,omitempty"`
}

// AnalysisRequest is the body of /v1/enrichment and /v1/iterative.
type AnalysisRequest struct {
	GeneSet    GeneList         `json:"gene_set"`
	Background GeneList         `json:"background"`
	Libraries  []Library        `json:"libraries" validate:"required,min=1,dive"`
	Options    *AnalysisOptions `json:"options,omitempty"`
}

// AnalysisResponse is the body returned for an analysis.
type AnalysisResponse struct {
	*pipeline.Result
	// Validation reports gene set identifiers that were dropped.
	Validation geneset.Validation `json:"validation"`
	// BackgroundValidation reports dropped background identifiers.
	BackgroundValidation geneset.Validation `json:"background_validation"`
	// Network is the merged DOT network of an iterative analysis, if any
	// term was removed.
	Network string `json:"network,omitempty"`
}

// Network output formats.
const (
	FormatDOT    = "dot"
	FormatPrompt = "prompt"
	FormatJSON   = "json"
)

// NetworkRequest is the body of /v1/network: iterative runs as returned by
// /v1/iterative.
type NetworkRequest struct {
	Runs   []*iterative.Run `json:"runs" validate:"required,min=1,dive,required"`
	Format string           `json:"format,omitempty" validate:"omitempty,oneof=dot prompt json"`
}

// input converts the request into pipeline input. Gene set identifiers
// missing from the background are dropped and reported.
func (req *AnalysisRequest) input() (pipeline.Input, geneset.Validation, geneset.Validation, error) {
	bg, bgv, err := geneset.GeneSetDocument{Name: req.Background.Name, Genes: req.Background.Genes}.ToBackground()
	if err != nil {
		return pipeline.Input{}, geneset.Validation{}, geneset.Validation{}, err
	}
	gs, gsv, err := geneset.GeneSetDocument{Name: req.GeneSet.Name, Genes: req.GeneSet.Genes}.ToGeneSet(bg)
	if err != nil {
		return pipeline.Input{}, geneset.Validation{}, geneset.Validation{}, err
	}

	libs := make([]*geneset.Library, 0, len(req.Libraries))
	for _, l := range req.Libraries {
		doc := geneset.LibraryDocument{Name: l.Name, Terms: make([]geneset.TermDocument, len(l.Terms))}
		for i, t := range l.Terms {
			doc.Terms[i] = geneset.TermDocument{Name: t.Name, Description: t.Description, Genes: t.Genes}
		}
		lib, err := doc.ToLibrary()
		if err != nil {
			return pipeline.Input{}, geneset.Validation{}, geneset.Validation{}, err
		}
		libs = append(libs, lib)
	}
	return pipeline.Input{GeneSet: gs, Background: bg, Libraries: libs}, gsv, bgv, nil
}

// options applies the request overrides to defaults.
func (req *AnalysisRequest) options(defaults pipeline.Options, mode string) (pipeline.Options, error) {
	opts := defaults
	opts.Mode = mode
	o := req.Options
	if o == nil {
		return opts, nil
	}
	if o.Method != "" {
		m, err := stats.ParseMethod(o.Method)
		if err != nil {
			return opts, err
		}
		opts.Method = m
	}
	if o.MinTermSize != nil {
		opts.MinTermSize = *o.MinTermSize
	}
	if o.MaxTermSize != nil {
		opts.MaxTermSize = *o.MaxTermSize
	}
	if o.PThreshold != nil {
		opts.PThreshold = *o.PThreshold
	}
	if o.MaxIterations != nil {
		opts.MaxIterations = *o.MaxIterations
	}
	if o.MinOverlap != nil {
		opts.MinOverlap = *o.MinOverlap
	}
	opts.Refresh = o.Refresh
	return opts, nil
}

// validateRequest checks struct tags and reports failures as invalid input.
func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "invalid request: %v", err)
	}
	return nil
}
