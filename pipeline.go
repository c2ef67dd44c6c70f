package img2xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bodgit/img2xlsx/frame"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/quantize"
	"github.com/bodgit/img2xlsx/render"
	"github.com/bodgit/img2xlsx/workbook"
	"github.com/google/uuid"
)

type frameResult struct {
	index int
	sheet *workbook.Sheet
	hit   bool
	err   *FrameError
}

type run struct {
	job     Job
	set     *frame.Set
	matcher palette.Matcher
	logger  *slog.Logger
}

// findFrames emits the frame indices 1 to bound. Each index takes a token
// first, so the producer can only get so far ahead of the slowest frame.
func findFrames(ctx context.Context, bound int, tokens chan<- struct{}) (<-chan int, <-chan error) {
	out := make(chan int)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i := 1; i <= bound; i++ {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}

			select {
			case out <- i:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func (c *Converter) frameWorker(ctx context.Context, r *run, in <-chan int) <-chan frameResult {
	out := make(chan frameResult)
	go func() {
		defer close(out)
		for index := range in {
			sheet, hit, err := c.processFrame(ctx, r, index)
			// Always delivered, the collector drains until every worker
			// has finished
			out <- frameResult{
				index: index,
				sheet: sheet,
				hit:   hit,
				err:   err,
			}
		}
	}()
	return out
}

func (c *Converter) processFrame(ctx context.Context, r *run, index int) (*workbook.Sheet, bool, *FrameError) {
	name := r.set.Naming().Name(index)
	logger := r.logger.With("frame", index)

	fail := func(stage Stage, err error) (*workbook.Sheet, bool, *FrameError) {
		return nil, false, &FrameError{
			Index: index,
			Name:  name,
			Stage: stage,
			Err:   err,
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(StageLoading, err)
	}
	logger.Debug("loading frame", "path", r.set.Path(index))
	img, digest, err := r.set.Load(index)
	if err != nil {
		return fail(StageLoading, err)
	}
	b := img.Bounds()

	var (
		q   *quantize.Indexed
		key string
		hit bool
	)
	if c.cache != nil {
		key = CacheKey(digest, r.job.Palette, r.job.Metric, r.job.Dither)
		q, err = c.cachedFrame(key, b.Dx(), b.Dy(), r.matcher.Len())
		if err != nil {
			logger.Warn("ignoring cached frame", "key", key, "error", err)
			q = nil
		}
		hit = q != nil
	}

	if q == nil {
		if err := ctx.Err(); err != nil {
			return fail(StageQuantizing, err)
		}
		logger.Debug("quantizing frame", "width", b.Dx(), "height", b.Dy())
		q, err = quantize.Quantize(quantize.FromImage(img), r.matcher, quantize.Options{Dither: r.job.Dither})
		if err != nil {
			return fail(StageQuantizing, err)
		}

		if c.cache != nil && r.matcher.Len() <= MaxCacheColors {
			if err := c.cache.Store(key, q); err != nil {
				logger.Warn("unable to cache frame", "key", key, "error", err)
			}
		}
	} else {
		logger.Debug("using cached frame", "key", key)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageRendering, err)
	}
	logger.Debug("rendering frame")
	f, err := render.Render(q, r.matcher)
	if err != nil {
		return fail(StageRendering, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageBuilding, err)
	}
	logger.Debug("building sheet", "sheet", name)
	sheet, err := workbook.Build(f, name, workbook.Options{
		ColWidth: r.job.ColWidth,
		Zoom:     r.job.Zoom,
	})
	if err != nil {
		return fail(StageBuilding, err)
	}

	return sheet, hit, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func mergeResults(cs ...<-chan frameResult) <-chan frameResult {
	var wg sync.WaitGroup
	out := make(chan frameResult, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan frameResult) {
			for r := range c {
				out <- r
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Converter) build(parent context.Context, job Job) (*workbook.Workbook, *Result, error) {
	start := time.Now()

	job, err := job.withDefaults()
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		RunID:  uuid.NewString(),
		Output: job.Output,
		Colors: job.Palette.Len(),
	}
	logger := c.logger.With("run", res.RunID)

	set, err := frame.Scan(job.FramesDir, job.Naming)
	if err != nil {
		return nil, nil, fmt.Errorf("scan frames: %w", err)
	}
	res.Found = set.Len()

	bound := set.Highest()
	if bound == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoFrames, job.FramesDir)
	}
	if job.Head > 0 && job.Head < bound {
		bound = job.Head
	}

	// Every frame up to the bound has to be there
	if missing := set.Missing(bound); len(missing) > 0 {
		i := missing[0]
		return nil, nil, &FrameError{
			Index: i,
			Name:  job.Naming.Name(i),
			Stage: StageLoading,
			Err:   &frame.NotFoundError{Index: i, Path: set.Path(i)},
		}
	}

	logger.Info("converting frames", "dir", job.FramesDir, "frames", res.Found, "contiguous", set.Contiguous(), "bound", bound, "workers", job.Workers, "colors", res.Colors)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	r := &run{
		job:     job,
		set:     set,
		matcher: job.Palette.Matcher(job.Metric),
		logger:  logger,
	}

	tokens := make(chan struct{}, 2*job.Workers)
	indices, errc := findFrames(ctx, bound, tokens)

	workers := make([]<-chan frameResult, 0, job.Workers)
	for i := 0; i < job.Workers; i++ {
		workers = append(workers, c.frameWorker(ctx, r, indices))
	}

	wb := workbook.New()
	pending := make(map[int]frameResult)
	next := 1
	var failure *FrameError

	for fr := range mergeResults(workers...) {
		if fr.err != nil {
			// Frames abandoned because of an earlier failure aren't
			// failures themselves
			if !isCancellation(fr.err.Err) && (failure == nil || fr.index < failure.Index) {
				failure = fr.err
			}
			cancel()
			continue
		}
		if failure != nil {
			continue
		}

		pending[fr.index] = fr
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)

			if err := wb.Append(p.sheet); err != nil {
				failure = &FrameError{Index: next, Name: p.sheet.Name, Stage: StageAppending, Err: err}
				cancel()
				break
			}
			if p.hit {
				res.CacheHits++
			}
			logger.Debug("appended sheet", "frame", next, "sheet", p.sheet.Name)
			if job.Progress != nil {
				job.Progress(wb.Len(), bound)
			}

			<-tokens
			next++
		}
	}

	perr := waitForPipeline(errc)

	switch {
	case failure != nil:
		logger.Error("conversion failed", "frame", failure.Index, "stage", failure.Stage, "error", failure.Err)
		return nil, nil, failure
	case parent.Err() != nil:
		logger.Info("conversion cancelled", "appended", wb.Len())
		return nil, nil, parent.Err()
	case perr != nil:
		return nil, nil, perr
	case wb.Len() != bound:
		return nil, nil, fmt.Errorf("img2xlsx: built %d of %d sheets", wb.Len(), bound)
	}

	res.Frames = wb.Len()
	res.Elapsed = time.Since(start)

	return wb, res, nil
}

// Build converts the frames of job into an in-memory workbook without
// writing it anywhere.
func (c *Converter) Build(ctx context.Context, job Job) (*workbook.Workbook, error) {
	wb, _, err := c.build(ctx, job)
	return wb, err
}

// Convert builds the workbook for job and writes it to job.Output. Nothing is
// written if the conversion fails or ctx is cancelled before the workbook is
// complete.
func (c *Converter) Convert(ctx context.Context, job Job) (*Result, error) {
	if job.Output == "" {
		return nil, errors.New("img2xlsx: no output path")
	}

	wb, res, err := c.build(ctx, job)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := c.logger.With("run", res.RunID)
	logger.Debug("persisting workbook", "path", job.Output, "sheets", wb.Len())

	start := time.Now()
	if err := wb.Save(job.Output); err != nil {
		return nil, err
	}
	res.Elapsed += time.Since(start)

	logger.Info("wrote workbook", "path", job.Output, "sheets", res.Frames, "cache_hits", res.CacheHits, "elapsed", res.Elapsed)

	return res, nil
}
