package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeekProgress is one recorded plan week in a student's ledger. Week
// numbers are unique per student; the ledger is append-only and
// corrections replace the whole document with an incremented revision.
type WeekProgress struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID  primitive.ObjectID `bson:"studentId" json:"studentId"`
	Week       int                `bson:"week" json:"week"`         // >= 1
	Revision   int                `bson:"revision" json:"revision"` // starts at 1, bumped by amendments
	Days       []DayProgress      `bson:"days" json:"days"`
	RecordedAt time.Time          `bson:"recordedAt" json:"recordedAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DayProgress records what the student actually did on one calendar day.
// Observation is the only field a student may edit after the week is written.
type DayProgress struct {
	Date        time.Time          `bson:"date" json:"date"`
	Observation string             `bson:"observation,omitempty" json:"observation,omitempty"`
	Exercises   []ExerciseProgress `bson:"exercises" json:"exercises"`
}

// ExerciseProgress records actual performance against one planned unit.
// The unit is identified by tree position plus the exercise name captured
// at record time; the name is historical text, not a live pointer, so the
// record stays meaningful if the routine later changes.
//
// ActualSeries defaults to the planned series when no override is supplied.
// ActualVolume is derived from the actuals and never accepted as input.
type ExerciseProgress struct {
	ExerciseName  string  `bson:"exerciseName" json:"exerciseName"`
	DayIndex      int     `bson:"dayIndex" json:"dayIndex"`
	BlockIndex    int     `bson:"blockIndex" json:"blockIndex"`
	ExerciseIndex int     `bson:"exerciseIndex" json:"exerciseIndex"`
	ActualWeight  float64 `bson:"actualWeight" json:"actualWeight"`
	ActualReps    int     `bson:"actualReps" json:"actualReps"`
	ActualSeries  *int    `bson:"actualSeries,omitempty" json:"actualSeries,omitempty"`
	ActualVolume  float64 `bson:"actualVolume" json:"actualVolume"`
}

// EffectiveSeries resolves the actual series count, falling back to the
// planned series when the record carries no override.
func (p *ExerciseProgress) EffectiveSeries(plannedSeries int) int {
	if p.ActualSeries != nil {
		return *p.ActualSeries
	}
	return plannedSeries
}

// ComputeActualVolume recalculates the derived actual volume.
func (p *ExerciseProgress) ComputeActualVolume(plannedSeries int) {
	p.ActualVolume = p.ActualWeight * float64(p.ActualReps) * float64(p.EffectiveSeries(plannedSeries))
}

// TotalVolume sums the actual volumes of every exercise in the week.
func (w *WeekProgress) TotalVolume() float64 {
	var sum float64
	for _, d := range w.Days {
		for _, e := range d.Exercises {
			sum += e.ActualVolume
		}
	}
	return sum
}
