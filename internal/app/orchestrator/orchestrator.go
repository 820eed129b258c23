package orchestrator

import (
	"context"
	"strings"
	"sync"

	"visionlex-server-go/internal/app/notify"
	"visionlex-server-go/internal/domain/history"
	"visionlex-server-go/internal/domain/prefs"
	"visionlex-server-go/internal/domain/speech"
	"visionlex-server-go/internal/domain/vision"
	platerrors "visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
)

// State tracks where the current analysis cycle is.
type State string

const (
	StateIdle         State = "idle"
	StateUploading    State = "uploading"
	StateAnalyzing    State = "analyzing"
	StateSynthesizing State = "synthesizing_audio"
	StateDone         State = "done"
	StateError        State = "error"
	StateCancelled    State = "cancelled"
)

// Ingester prepares an uploaded file for the vision model.
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (string, error)
}

// Analyzer produces a word analysis from an image data URI.
type Analyzer interface {
	Configured() bool
	Analyze(ctx context.Context, imageDataURI string) (*vision.AnalysisResult, error)
}

// Synthesizer turns the example sentence into playable audio.
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, text string) (*speech.Handle, error)
}

// Snapshot is the public view of the session, broadcast on every transition.
type Snapshot struct {
	State        State           `json:"state"`
	Result       *history.Record `json:"result,omitempty"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	AudioURL     string          `json:"audioUrl,omitempty"`
	CanRetry     bool            `json:"canRetry"`
}

// Orchestrator drives the upload → analyze → speak cycle. At most one
// inference is in flight; a new cycle supersedes the previous one.
type Orchestrator struct {
	ingester Ingester
	analyzer Analyzer
	speaker  Synthesizer
	history  *history.Store
	prefs    *prefs.Store
	center   *notify.Center
	logger   *logging.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      State
	result     *history.Record
	errKind    platerrors.Kind
	errMessage string
	audio      *speech.Handle
	lastImage  string
}

func New(ingester Ingester, analyzer Analyzer, speaker Synthesizer, hist *history.Store, preferences *prefs.Store, center *notify.Center, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Orchestrator{
		ingester: ingester,
		analyzer: analyzer,
		speaker:  speaker,
		history:  hist,
		prefs:    preferences,
		center:   center,
		logger:   logger,
		state:    StateIdle,
	}
}

// Analyze runs one full cycle for an uploaded file. It blocks until the
// cycle reaches a terminal state or is superseded by a newer upload.
func (o *Orchestrator) Analyze(ctx context.Context, filename string, data []byte) Snapshot {
	gen, runCtx := o.begin()

	o.transition(gen, StateUploading, nil)
	imageURI, err := o.ingester.Ingest(runCtx, filename, data)
	if err != nil {
		return o.fail(gen, err)
	}

	o.mu.Lock()
	if gen == o.generation {
		o.lastImage = imageURI
	}
	o.mu.Unlock()

	return o.runInference(gen, runCtx, imageURI)
}

// Retry re-runs inference with the already ingested image.
func (o *Orchestrator) Retry(ctx context.Context) Snapshot {
	o.mu.Lock()
	imageURI := o.lastImage
	o.mu.Unlock()
	if imageURI == "" {
		o.center.Error("%s", platerrors.UserMessage(platerrors.New(platerrors.KindEmptyInput, "orchestrator.Retry", "")))
		return o.Snapshot()
	}

	gen, runCtx := o.begin()
	return o.runInference(gen, runCtx, imageURI)
}

// Cancel aborts the in-flight inference, if any. The blocked Analyze or
// Retry call observes the cancellation and settles the state itself.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ShowHistory displays a stored record without running the pipeline.
func (o *Orchestrator) ShowHistory(ctx context.Context, id string) (Snapshot, bool) {
	rec, ok := o.history.Get(ctx, id)
	if !ok {
		return o.Snapshot(), false
	}

	o.mu.Lock()
	o.state = StateDone
	o.result = &rec
	o.errKind = ""
	o.errMessage = ""
	o.swapAudioLocked(nil)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.center.PublishState(snap)
	return snap, true
}

// Snapshot returns the current public view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Close cancels any in-flight work and releases the audio slot.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.generation++
	o.swapAudioLocked(nil)
	o.mu.Unlock()
}

func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen == o.generation
}

// begin supersedes any running cycle and hands out its replacement.
func (o *Orchestrator) begin() (uint64, context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	return o.generation, runCtx
}

func (o *Orchestrator) runInference(gen uint64, runCtx context.Context, imageURI string) Snapshot {
	o.transition(gen, StateAnalyzing, nil)

	result, err := o.analyzer.Analyze(runCtx, imageURI)
	if err != nil {
		if platerrors.IsKind(err, platerrors.KindCancelled) {
			return o.settleCancelled(gen)
		}
		return o.fail(gen, err)
	}

	rec := o.record(runCtx, gen, *result, imageURI)
	o.transition(gen, StateDone, &rec)

	sentence := strings.TrimSpace(result.ExampleSentence)
	if sentence != "" && o.speaker.Configured() && o.autoSpeak(runCtx) {
		o.transition(gen, StateSynthesizing, &rec)
		handle, synthErr := o.speaker.Synthesize(runCtx, sentence)
		if synthErr != nil {
			o.logger.WarnTag("TTS", "synthesis failed: %v", synthErr)
			// A superseded or cancelled cycle's failure is not news to the user.
			if o.current(gen) && !platerrors.IsKind(synthErr, platerrors.KindCancelled) {
				o.center.Warning("%s", platerrors.UserMessage(synthErr))
			}
		} else {
			o.mu.Lock()
			if gen == o.generation {
				o.swapAudioLocked(handle)
			} else {
				handle.Release()
			}
			o.mu.Unlock()
		}
		o.transition(gen, StateDone, &rec)
	}

	o.mu.Lock()
	current := gen == o.generation
	if current {
		o.clearCancelLocked()
	}
	o.mu.Unlock()
	if current {
		o.center.Success("Analysis complete: %s", result.RepresentativeWord)
	}
	return o.Snapshot()
}

func (o *Orchestrator) record(ctx context.Context, gen uint64, result vision.AnalysisResult, imageURI string) history.Record {
	if o.prefs != nil && !o.prefs.Get(ctx).SaveHistory {
		return history.Record{AnalysisResult: result, ImageData: imageURI}
	}
	return o.history.Add(ctx, result, imageURI)
}

func (o *Orchestrator) autoSpeak(ctx context.Context) bool {
	if o.prefs == nil {
		return true
	}
	return o.prefs.Get(ctx).AutoSpeak
}

// transition commits a state change unless the cycle has been superseded.
func (o *Orchestrator) transition(gen uint64, state State, rec *history.Record) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.state = state
	o.errKind = ""
	o.errMessage = ""
	switch state {
	case StateUploading, StateAnalyzing:
		o.result = nil
		o.swapAudioLocked(nil)
	}
	if rec != nil {
		o.result = rec
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.center.PublishState(snap)
}

func (o *Orchestrator) fail(gen uint64, err error) Snapshot {
	msg := platerrors.UserMessage(err)
	o.logger.WarnTag("VISION", "cycle failed: %v", err)

	o.mu.Lock()
	if gen != o.generation {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap
	}
	o.state = StateError
	o.errKind = platerrors.KindOf(err)
	o.errMessage = msg
	o.result = nil
	o.swapAudioLocked(nil)
	o.clearCancelLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.center.Error("%s", msg)
	o.center.PublishState(snap)
	return snap
}

func (o *Orchestrator) settleCancelled(gen uint64) Snapshot {
	o.mu.Lock()
	if gen != o.generation {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap
	}
	o.state = StateCancelled
	o.errKind = platerrors.KindCancelled
	o.errMessage = platerrors.UserMessage(platerrors.New(platerrors.KindCancelled, "orchestrator.Cancel", ""))
	o.result = nil
	o.swapAudioLocked(nil)
	o.clearCancelLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.center.PublishState(snap)
	return snap
}

// swapAudioLocked installs the new handle before releasing the old one.
func (o *Orchestrator) swapAudioLocked(next *speech.Handle) {
	old := o.audio
	o.audio = next
	if old != nil {
		old.Release()
	}
}

func (o *Orchestrator) clearCancelLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        o.state,
		Result:       o.result,
		ErrorKind:    string(o.errKind),
		ErrorMessage: o.errMessage,
		CanRetry:     o.lastImage != "",
	}
	if o.audio != nil {
		snap.AudioURL = o.audio.URL()
	}
	return snap
}
