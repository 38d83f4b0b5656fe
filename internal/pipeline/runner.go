package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docrank/internal/descriptor"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/ranking"
	"github.com/dgallion1/docrank/internal/report"
	"github.com/dgallion1/docrank/internal/summary"
)

// Request is one persona/job run over a document set.
type Request struct {
	InputDir  string
	Persona   string
	Job       string
	Documents []string

	// Observer, when set, is told about phases and finished documents.
	Observer Observer
}

// Observer receives progress from a run.
type Observer interface {
	EnterPhase(name string)
	DocumentDone(name string, err error)
}

// LoadRequest reads the descriptor at path and checks the input directory.
// Any failure is a ConfigError.
func LoadRequest(inputDir, descriptorPath string, checkSchema bool) (Request, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return Request{}, &ConfigError{Message: "input directory", Cause: err}
	}
	if !info.IsDir() {
		return Request{}, &ConfigError{Message: fmt.Sprintf("input directory %s is not a directory", inputDir)}
	}
	d, err := descriptor.Load(descriptorPath, checkSchema)
	if err != nil {
		return Request{}, &ConfigError{Message: "input descriptor", Cause: err}
	}
	return Request{
		InputDir:  inputDir,
		Persona:   d.Metadata.Persona,
		Job:       d.Metadata.JobToBeDone,
		Documents: d.Filenames(),
	}, nil
}

// Options tunes a Runner.
type Options struct {
	Workers int // Documents decoded in parallel
	Parser  parser.Options
}

// Runner executes ranking runs against one embedder.
type Runner struct {
	emb  embed.Embedder
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func NewRunner(emb embed.Embedder, opts Options, log *slog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{emb: emb, opts: opts, log: log, now: time.Now}
}

// ParserOptions returns the parser options documents are decoded with.
func (r *Runner) ParserOptions() parser.Options {
	return r.opts.Parser
}

// Model returns the embedding model name.
func (r *Runner) Model() string {
	return r.emb.Model()
}

// Run decodes, outlines and ranks every listed document and assembles the
// result. Missing documents are skipped; embedding failures abort the run
// with a ModelError.
func (r *Runner) Run(ctx context.Context, req Request) (*report.Result, error) {
	log := r.log.With("run_id", NewRunID())
	obs := req.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	log.Info("run started", "documents", len(req.Documents), "persona", req.Persona, "model", r.emb.Model())

	obs.EnterPhase("embedding query")
	query, err := r.emb.Embed(ctx, ranking.QueryText(req.Persona, req.Job))
	if err != nil {
		return nil, &ModelError{Message: "embed query", Cause: err}
	}

	obs.EnterPhase("decoding")
	analyses, err := r.analyzeAll(ctx, log, req, obs)
	if err != nil {
		return nil, err
	}

	obs.EnterPhase("ranking")
	var rankings []ranking.DocumentRanking
	var ranked []*Analysis
	for _, a := range analyses {
		if a == nil {
			continue
		}
		scored, err := ranking.Rank(ctx, r.emb, query, a.Sections)
		if err != nil {
			return nil, &ModelError{Message: fmt.Sprintf("rank %s", a.Name), Cause: err}
		}
		rankings = append(rankings, ranking.DocumentRanking{Document: a.Name, Sections: scored})
		ranked = append(ranked, a)
		log.Info("document ranked", "document", a.Name, "sections", len(scored))
	}

	sections := ranking.AssignRanks(rankings)
	summaries := make([]report.SubsectionAnalysis, 0, len(sections))
	for i, d := range rankings {
		for _, s := range d.Sections {
			page := s.Section.Anchor.Page
			summaries = append(summaries, report.SubsectionAnalysis{
				Document:    d.Document,
				RefinedText: summary.Summarize(ranked[i].Document.PageText(page)),
				PageNumber:  page,
			})
		}
	}

	res := report.Assemble(req.Documents, req.Persona, req.Job, sections, summaries, r.now())
	log.Info("run finished", "sections", len(sections))
	return res, nil
}

// analyzeAll decodes documents with bounded parallelism. The returned slice
// is parallel to req.Documents; missing documents leave a nil entry. Observer
// calls are serialized.
func (r *Runner) analyzeAll(ctx context.Context, log *slog.Logger, req Request, obs Observer) ([]*Analysis, error) {
	analyses := make([]*Analysis, len(req.Documents))
	var obsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, name := range req.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := r.analyzeOne(log.With("document", name), req.InputDir, name)
			obsMu.Lock()
			obs.DocumentDone(name, err)
			obsMu.Unlock()
			if err != nil {
				return nil
			}
			analyses[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analyses, nil
}

// analyzeOne returns a DocumentMissingError for absent files. Any other
// decode failure degrades to an empty document.
func (r *Runner) analyzeOne(log *slog.Logger, dir, name string) (*Analysis, error) {
	log.Info("processing document")
	path := filepath.Join(dir, name)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", path)
		}
		missing := &DocumentMissingError{Document: name, Path: path, Cause: err}
		log.Warn("skipping document", "error", missing)
		return nil, missing
	}

	doc, err := DecodeFile(path, name, r.opts.Parser)
	if err != nil {
		log.Warn("document could not be decoded, treating as empty", "error", err)
		doc = nil
	}
	a := Analyze(name, doc)
	log.Info("outline inferred", "title", a.Outline.Title, "headings", len(a.Outline.Headings), "sections", len(a.Sections))
	return &a, nil
}

// IsMissing reports whether err is a DocumentMissingError.
func IsMissing(err error) bool {
	var missing *DocumentMissingError
	return errors.As(err, &missing)
}

type nopObserver struct{}

func (nopObserver) EnterPhase(string)          {}
func (nopObserver) DocumentDone(string, error) {}
