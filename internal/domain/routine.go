package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExperienceLevel tags the student's training background on a routine.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// ValidExperience reports whether lvl is a known experience level.
func ValidExperience(lvl ExperienceLevel) bool {
	return lvl == ExperienceBeginner || lvl == ExperienceIntermediate || lvl == ExperienceAdvanced
}

// RoutineMeta carries the descriptive metadata a coach attaches to a routine.
type RoutineMeta struct {
	GenderTag     string          `bson:"genderTag,omitempty" json:"genderTag,omitempty"`
	Goal          string          `bson:"goal,omitempty" json:"goal,omitempty"`
	Age           int             `bson:"age,omitempty" json:"age,omitempty"`
	Experience    ExperienceLevel `bson:"experience" json:"experience"`
	Periodization string          `bson:"periodization,omitempty" json:"periodization,omitempty"`
}

// Routine is a multi-week training plan a coach designs for one student.
// The day/block/exercise structure is a strict tree of ordered slices;
// entries are addressed by position, never by cross-reference.
type Routine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID   primitive.ObjectID `bson:"studentId" json:"studentId"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	Name        string             `bson:"name" json:"name"`
	Meta        RoutineMeta        `bson:"meta" json:"meta"`
	CurrentWeek int                `bson:"currentWeek" json:"currentWeek"` // >= 1
	Days        []Day              `bson:"days" json:"days"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Day groups the blocks prescribed for one training day. Order matters.
type Day struct {
	Name   string  `bson:"name" json:"name"`
	Blocks []Block `bson:"blocks" json:"blocks"`
}

// Block groups a sequence of exercise units within a day.
type Block struct {
	Name      string         `bson:"name" json:"name"`
	Exercises []ExerciseUnit `bson:"exercises" json:"exercises"`
}

// ExerciseUnit is a single prescribed exercise entry.
//
// Volume is derived, never independently settable: any volume supplied on
// input is discarded and recomputed from series, reps and weight on write.
type ExerciseUnit struct {
	Name        string   `bson:"name" json:"name"`
	VideoRef    string   `bson:"videoRef,omitempty" json:"videoRef,omitempty"`
	Series      int      `bson:"series" json:"series"` // >= 1
	Reps        int      `bson:"reps" json:"reps"`     // >= 1
	Weight      *float64 `bson:"weight,omitempty" json:"weight,omitempty"` // nil = unknown
	RestSeconds int      `bson:"restSeconds" json:"restSeconds"`           // >= 0
	Volume      float64  `bson:"volume" json:"volume"`
}

// ComputeVolume recalculates the derived volume from the unit's inputs.
// An unknown weight counts as zero.
func (u *ExerciseUnit) ComputeVolume() {
	w := 0.0
	if u.Weight != nil {
		w = *u.Weight
	}
	u.Volume = float64(u.Series) * float64(u.Reps) * w
}

// Equal reports whether two units prescribe the same thing, ignoring the
// derived volume.
func (u ExerciseUnit) Equal(o ExerciseUnit) bool {
	if u.Name != o.Name || u.VideoRef != o.VideoRef ||
		u.Series != o.Series || u.Reps != o.Reps || u.RestSeconds != o.RestSeconds {
		return false
	}
	if (u.Weight == nil) != (o.Weight == nil) {
		return false
	}
	return u.Weight == nil || *u.Weight == *o.Weight
}

// UnitLocation addresses an exercise unit inside a routine tree by position.
type UnitLocation struct {
	Day      int `json:"day"`
	Block    int `json:"block"`
	Exercise int `json:"exercise"`
}

// UnitAt returns a pointer to the unit at loc, or nil if any index is out
// of range.
func (r *Routine) UnitAt(loc UnitLocation) *ExerciseUnit {
	if loc.Day < 0 || loc.Day >= len(r.Days) {
		return nil
	}
	day := &r.Days[loc.Day]
	if loc.Block < 0 || loc.Block >= len(day.Blocks) {
		return nil
	}
	block := &day.Blocks[loc.Block]
	if loc.Exercise < 0 || loc.Exercise >= len(block.Exercises) {
		return nil
	}
	return &block.Exercises[loc.Exercise]
}

// RecomputeVolumes recalculates every unit volume in the tree.
func (r *Routine) RecomputeVolumes() {
	for di := range r.Days {
		for bi := range r.Days[di].Blocks {
			for ei := range r.Days[di].Blocks[bi].Exercises {
				r.Days[di].Blocks[bi].Exercises[ei].ComputeVolume()
			}
		}
	}
}
