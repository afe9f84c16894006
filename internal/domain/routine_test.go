package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeVolume(t *testing.T) {
	unit := ExerciseUnit{Name: "Back Squat", Series: 3, Reps: 10, Weight: floatPtr(20)}
	unit.ComputeVolume()
	assert.Equal(t, 600.0, unit.Volume)
}

func TestComputeVolumeUnknownWeight(t *testing.T) {
	unit := ExerciseUnit{Name: "Pull Up", Series: 4, Reps: 8}
	unit.ComputeVolume()
	assert.Equal(t, 0.0, unit.Volume)
}

func TestComputeVolumeOverwritesSuppliedValue(t *testing.T) {
	unit := ExerciseUnit{Name: "Bench Press", Series: 5, Reps: 5, Weight: floatPtr(60), Volume: 9999}
	unit.ComputeVolume()
	assert.Equal(t, 1500.0, unit.Volume)
}

func TestUnitEqualIgnoresVolume(t *testing.T) {
	a := ExerciseUnit{Name: "Row", Series: 3, Reps: 12, Weight: floatPtr(40), RestSeconds: 90, Volume: 1440}
	b := ExerciseUnit{Name: "Row", Series: 3, Reps: 12, Weight: floatPtr(40), RestSeconds: 90, Volume: 0}
	assert.True(t, a.Equal(b))

	b.Reps = 10
	assert.False(t, a.Equal(b))
}

func TestUnitEqualWeightPresence(t *testing.T) {
	a := ExerciseUnit{Name: "Dip", Series: 3, Reps: 10}
	b := ExerciseUnit{Name: "Dip", Series: 3, Reps: 10, Weight: floatPtr(0)}
	assert.False(t, a.Equal(b))
}

func testRoutine() *Routine {
	return &Routine{
		Name:        "Hypertrophy A",
		CurrentWeek: 1,
		Days: []Day{
			{
				Name: "Day 1",
				Blocks: []Block{
					{
						Name: "Main",
						Exercises: []ExerciseUnit{
							{Name: "Back Squat", Series: 3, Reps: 10, Weight: floatPtr(20), RestSeconds: 120},
							{Name: "Leg Press", Series: 3, Reps: 12, Weight: floatPtr(80), RestSeconds: 90},
						},
					},
				},
			},
			{
				Name: "Day 2",
				Blocks: []Block{
					{
						Name: "Upper",
						Exercises: []ExerciseUnit{
							{Name: "Bench Press", Series: 4, Reps: 8, Weight: floatPtr(50), RestSeconds: 120},
						},
					},
				},
			},
		},
	}
}

func TestUnitAt(t *testing.T) {
	r := testRoutine()

	unit := r.UnitAt(UnitLocation{Day: 0, Block: 0, Exercise: 1})
	assert.NotNil(t, unit)
	assert.Equal(t, "Leg Press", unit.Name)

	assert.Nil(t, r.UnitAt(UnitLocation{Day: 2, Block: 0, Exercise: 0}))
	assert.Nil(t, r.UnitAt(UnitLocation{Day: 0, Block: 1, Exercise: 0}))
	assert.Nil(t, r.UnitAt(UnitLocation{Day: 0, Block: 0, Exercise: 2}))
	assert.Nil(t, r.UnitAt(UnitLocation{Day: -1, Block: 0, Exercise: 0}))
}

func TestRecomputeVolumes(t *testing.T) {
	r := testRoutine()
	r.RecomputeVolumes()

	assert.Equal(t, 600.0, r.Days[0].Blocks[0].Exercises[0].Volume)
	assert.Equal(t, 2880.0, r.Days[0].Blocks[0].Exercises[1].Volume)
	assert.Equal(t, 1600.0, r.Days[1].Blocks[0].Exercises[0].Volume)
}
