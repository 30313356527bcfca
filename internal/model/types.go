package model

import (
	"fmt"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// VectorRef identifies one individual of one generation.
type VectorRef struct {
	GenerationID int `json:"generation_id"`
	Index        int `json:"index"`
}

func (r VectorRef) String() string {
	return fmt.Sprintf("g%d/i%d", r.GenerationID, r.Index)
}

type IndividualStatus string

const (
	IndividualPending  IndividualStatus = "pending"
	IndividualScored   IndividualStatus = "scored"
	IndividualUnscored IndividualStatus = "unscored"
)

// AggregatedEngagement is the per-individual reduction of all observations
// attributed to it during one scoring pass.
type AggregatedEngagement struct {
	Observations  int     `json:"observations"`
	Views         int64   `json:"views"`
	Likes         int64   `json:"likes"`
	Shares        int64   `json:"shares"`
	WatchFraction float64 `json:"watch_fraction"`
	RenderCost    float64 `json:"render_cost"`
}

type Individual struct {
	Index      int                   `json:"index"`
	Vector     ParameterVector       `json:"vector"`
	Status     IndividualStatus      `json:"status"`
	Engagement *AggregatedEngagement `json:"engagement,omitempty"`
	Fitness    float64               `json:"fitness"`
}

// Population is the ordered set of individuals of one generation. Slot order
// is stable and equals Individual.Index.
type Population []Individual

func (p Population) Clone() Population {
	if p == nil {
		return nil
	}
	out := make(Population, len(p))
	for i, item := range p {
		out[i] = item
		if item.Engagement != nil {
			engagement := *item.Engagement
			out[i].Engagement = &engagement
		}
	}
	return out
}

func (p Population) ScoredCount() int {
	count := 0
	for _, item := range p {
		if item.Status == IndividualScored {
			count++
		}
	}
	return count
}

type GenerationStatus string

const (
	StatusSeeding    GenerationStatus = "seeding"
	StatusActive     GenerationStatus = "active"
	StatusEvaluating GenerationStatus = "evaluating"
	StatusEvolved    GenerationStatus = "evolved"
	StatusStalled    GenerationStatus = "stalled"
)

func (s GenerationStatus) Terminal() bool {
	return s == StatusEvolved || s == StatusStalled
}

type GenerationDiagnostics struct {
	BestFitness   float64 `json:"best_fitness"`
	MeanFitness   float64 `json:"mean_fitness"`
	MinFitness    float64 `json:"min_fitness"`
	ScoredCount   int     `json:"scored_count"`
	UnscoredCount int     `json:"unscored_count"`
	EliteCount    int     `json:"elite_count"`
	TotalViews    int64   `json:"total_views"`
}

// Generation is one durable record of the generation log. SuccessorID is nil
// while the generation has no committed successor.
type Generation struct {
	VersionedRecord
	ID               int                    `json:"id"`
	Status           GenerationStatus       `json:"status"`
	Population       Population             `json:"population"`
	EliteIndices     []int                  `json:"elite_indices,omitempty"`
	ActivatedRef     VectorRef              `json:"activated_ref"`
	ActivatedVector  ParameterVector        `json:"activated_vector"`
	SuccessorID      *int                   `json:"successor_id,omitempty"`
	Diagnostics      *GenerationDiagnostics `json:"diagnostics,omitempty"`
	StallCount       int                    `json:"stall_count"`
	LastStalledAt    time.Time              `json:"last_stalled_at,omitzero"`
	TrendConditioned bool                   `json:"trend_conditioned,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	EvaluatedAt      time.Time              `json:"evaluated_at,omitzero"`
}

func (g Generation) Clone() Generation {
	out := g
	out.Population = g.Population.Clone()
	out.EliteIndices = append([]int(nil), g.EliteIndices...)
	if g.SuccessorID != nil {
		id := *g.SuccessorID
		out.SuccessorID = &id
	}
	if g.Diagnostics != nil {
		diagnostics := *g.Diagnostics
		out.Diagnostics = &diagnostics
	}
	return out
}

// Head is the serving pointer of the generation log: the generation
// currently accumulating engagement and the vector handed to producers.
type Head struct {
	GenerationID    int              `json:"generation_id"`
	Status          GenerationStatus `json:"status"`
	ActivatedRef    VectorRef        `json:"activated_ref"`
	ActivatedVector ParameterVector  `json:"activated_vector"`
	CommittedAt     time.Time        `json:"committed_at"`
}

func HeadOf(g Generation, committedAt time.Time) Head {
	return Head{
		GenerationID:    g.ID,
		Status:          g.Status,
		ActivatedRef:    g.ActivatedRef,
		ActivatedVector: g.ActivatedVector,
		CommittedAt:     committedAt,
	}
}

// EngagementObservation is one analytics report for content rendered with
// the vector identified by Ref.
type EngagementObservation struct {
	ID            string    `json:"id"`
	Ref           VectorRef `json:"ref"`
	Views         int64     `json:"views"`
	Likes         int64     `json:"likes"`
	Shares        int64     `json:"shares"`
	WatchFraction float64   `json:"watch_fraction"`
	RenderCost    float64   `json:"render_cost"`
	Timestamp     time.Time `json:"timestamp"`
}

// TrendContext is the Sentinel's embedding for one evaluation cycle.
type TrendContext struct {
	Embedding  []float64 `json:"embedding"`
	CapturedAt time.Time `json:"captured_at"`
}
