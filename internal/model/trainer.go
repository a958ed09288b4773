package model

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNoTrainingData = errors.New("no training data")
	ErrLengthMismatch = errors.New("revenues and sentiments differ in length")
)

const (
	// Below this many points the loss label is taken from sentiment sign.
	minRevenueLabelPoints = 10
	// With enough points a day is a loss day when revenue < 0.9 × mean revenue.
	lossRevenueRatio = 0.9
)

// LabelRule names how the loss labels of a snapshot were derived.
type LabelRule string

const (
	RuleSentimentSign LabelRule = "sentiment_sign"
	RuleRevenueBelow  LabelRule = "revenue_below_mean"
)

// Snapshot is an immutable pair of models trained for one request.
type Snapshot struct {
	Classifier Logistic  `json:"classifier"`
	Regressor  Linear    `json:"regressor"`
	Samples    int       `json:"samples"`
	Rule       LabelRule `json:"label_rule"`
	Flipped    bool      `json:"flipped"`
	TrainedAt  time.Time `json:"trained_at"`
}

// LossProbability is P(loss | sentiment).
func (s *Snapshot) LossProbability(sentiment float64) float64 {
	return s.Classifier.Probability(sentiment)
}

// PredictRevenue is the regressor's revenue estimate at sentiment.
func (s *Snapshot) PredictRevenue(sentiment float64) float64 {
	return s.Regressor.Predict(sentiment)
}

// Labels derives binary loss labels. When every label ends up in one class
// the first one is flipped so the classifier always sees two classes.
func Labels(revenues, sentiments []float64) ([]float64, LabelRule, bool) {
	n := len(sentiments)
	y := make([]float64, n)
	rule := RuleSentimentSign

	if n < minRevenueLabelPoints {
		for i, s := range sentiments {
			if s < 0 {
				y[i] = 1
			}
		}
	} else {
		rule = RuleRevenueBelow
		mean := 0.0
		for _, r := range revenues {
			mean += r
		}
		mean /= float64(len(revenues))
		for i, r := range revenues {
			if r < lossRevenueRatio*mean {
				y[i] = 1
			}
		}
	}

	flipped := false
	if n > 0 && singleClass(y) {
		y[0] = 1 - y[0]
		flipped = true
	}
	return y, rule, flipped
}

func singleClass(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}

// Train fits a fresh snapshot from aligned revenue and sentiment vectors.
func Train(revenues, sentiments []float64) (*Snapshot, error) {
	if len(revenues) != len(sentiments) {
		return nil, ErrLengthMismatch
	}
	if len(revenues) == 0 {
		return nil, ErrNoTrainingData
	}

	y, rule, flipped := Labels(revenues, sentiments)
	clf, err := FitLogistic(sentiments, y)
	if err != nil {
		return nil, err
	}
	reg, err := FitLinear(sentiments, revenues)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Classifier: clf,
		Regressor:  reg,
		Samples:    len(revenues),
		Rule:       rule,
		Flipped:    flipped,
		TrainedAt:  time.Now().UTC(),
	}, nil
}

// Registry remembers the latest snapshot per product and brand for
// inspection. Predictions never read from it.
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

func NewRegistry() *Registry {
	return &Registry{snapshots: make(map[string]*Snapshot)}
}

func (r *Registry) Put(product, brand string, s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[product+"|"+brand] = s
}

func (r *Registry) Get(product, brand string) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[product+"|"+brand]
	return s, ok
}
