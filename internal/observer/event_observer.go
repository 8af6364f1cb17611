package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/frame-classifier/pkg/models"
)

// ClassificationEvent represents a classification lifecycle event
type ClassificationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Domain         string                 `json:"domain,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Label          string                 `json:"label,omitempty"`
	Confidence     float64                `json:"confidence,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of classification event
type EventType string

const (
	// ClassificationStarted when a request is accepted
	ClassificationStarted EventType = "classification_started"
	// ClassificationCompleted when a label was produced
	ClassificationCompleted EventType = "classification_completed"
	// ClassificationFailed when the request ends in an error
	ClassificationFailed EventType = "classification_failed"
	// ImageDecoded when the payload decoded into an image
	ImageDecoded EventType = "image_decoded"
	// ImageDecodeFailed when the payload could not be decoded
	ImageDecodeFailed EventType = "image_decode_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ClassificationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	// SubscribeSync adds an observer that runs before NotifyObservers returns.
	SubscribeSync(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ClassificationEvent)
}

// LoggingObserver logs classification events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles classification events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ClassificationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"domain":          event.Domain,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.Category != "" {
		fields["category"] = event.Category
		fields["label"] = event.Label
		fields["confidence"] = event.Confidence
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ClassificationStarted:
		entry.Debug("Classification started")
	case ClassificationCompleted:
		entry.Info("Classification completed")
	case ClassificationFailed:
		entry.Error("Classification failed")
	case ImageDecoded:
		entry.Debug("Image decoded")
	case ImageDecodeFailed:
		entry.Warn("Image decode failed")
	default:
		entry.Info("Classification event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// DefaultConfidenceWindow is how many recent confidences MetricsObserver keeps.
const DefaultConfidenceWindow = 1024

// MetricsObserver collects counters and a rolling confidence summary
type MetricsObserver struct {
	mu                  sync.RWMutex
	started             int64
	completed           int64
	failed              int64
	decodeFailures      int64
	byDomain            map[string]int64
	byCategory          map[string]int64
	totalProcessingTime time.Duration

	confidences []float64
	next        int
	window      int
}

// NewMetricsObserver creates a metrics observer remembering the last window
// confidences. A non-positive window uses DefaultConfidenceWindow.
func NewMetricsObserver(window int) *MetricsObserver {
	if window <= 0 {
		window = DefaultConfidenceWindow
	}
	return &MetricsObserver{
		byDomain:    make(map[string]int64),
		byCategory:  make(map[string]int64),
		confidences: make([]float64, 0, window),
		window:      window,
	}
}

// OnEvent handles classification events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ClassificationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ClassificationStarted:
		o.started++
	case ClassificationCompleted:
		o.completed++
		o.totalProcessingTime += event.ProcessingTime
		o.byDomain[event.Domain]++
		o.byCategory[event.Domain+"/"+event.Category]++
		o.record(event.Confidence)
	case ClassificationFailed:
		o.failed++
	case ImageDecodeFailed:
		o.decodeFailures++
	}
}

func (o *MetricsObserver) record(confidence float64) {
	if len(o.confidences) < o.window {
		o.confidences = append(o.confidences, confidence)
		return
	}
	o.confidences[o.next] = confidence
	o.next = (o.next + 1) % o.window
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns a copy of the current metrics
func (o *MetricsObserver) Snapshot() models.ClassificationStats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	stats := models.ClassificationStats{
		Started:           o.started,
		Completed:         o.completed,
		Failed:            o.failed,
		DecodeFailures:    o.decodeFailures,
		ByDomain:          make(map[string]int64, len(o.byDomain)),
		ByCategory:        make(map[string]int64, len(o.byCategory)),
		ConfidenceSamples: len(o.confidences),
	}
	for k, v := range o.byDomain {
		stats.ByDomain[k] = v
	}
	for k, v := range o.byCategory {
		stats.ByCategory[k] = v
	}

	switch n := len(o.confidences); {
	case n == 1:
		stats.ConfidenceMean = o.confidences[0]
	case n > 1:
		stats.ConfidenceMean, stats.ConfidenceStdDev = stat.MeanStdDev(o.confidences, nil)
	}
	if o.completed > 0 {
		avg := o.totalProcessingTime / time.Duration(o.completed)
		stats.AvgProcessingMs = float64(avg) / float64(time.Millisecond)
	}
	return stats
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu            sync.RWMutex
	observers     []Observer
	syncObservers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// SubscribeSync adds an observer that is notified inline. Use it for cheap
// observers whose state must be current once the request returns.
func (p *EventPublisher) SubscribeSync(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncObservers = append(p.syncObservers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observers = without(p.observers, observer)
	p.syncObservers = without(p.syncObservers, observer)
}

func without(observers []Observer, observer Observer) []Observer {
	for i, obs := range observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			return append(observers[:i], observers[i+1:]...)
		}
	}
	return observers
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ClassificationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	syncObservers := make([]Observer, len(p.syncObservers))
	copy(syncObservers, p.syncObservers)
	p.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, obs := range syncObservers {
		deliver(detached, obs, event)
	}

	// Remaining observers run concurrently and never block the request
	for _, obs := range observers {
		go deliver(detached, obs, event)
	}
}

func deliver(ctx context.Context, obs Observer, event ClassificationEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
