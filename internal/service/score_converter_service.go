package service

import (
	"fmt"
	"math"
)

// ScoreConverterService maps a final grade on the course scale to the
// fraction the outcome service accepts.
type ScoreConverterService interface {
	ConvertToOutcomeScore(finalGrade float64) (float64, error)
	MaxGrade() float64
}

type scoreConverterServiceImpl struct {
	maxGrade float64
}

// NewScoreConverterService uses a scale of [0, maxGrade]. A non-positive
// maxGrade means grades are already fractions.
func NewScoreConverterService(maxGrade float64) ScoreConverterService {
	if maxGrade <= 0 || math.IsNaN(maxGrade) || math.IsInf(maxGrade, 0) {
		maxGrade = 1
	}
	return &scoreConverterServiceImpl{maxGrade: maxGrade}
}

func (s *scoreConverterServiceImpl) MaxGrade() float64 { return s.maxGrade }

func (s *scoreConverterServiceImpl) ConvertToOutcomeScore(finalGrade float64) (float64, error) {
	if math.IsNaN(finalGrade) || finalGrade < 0 || finalGrade > s.maxGrade {
		return 0, fmt.Errorf("grade %v is out of valid range (0-%v)", finalGrade, s.maxGrade)
	}

	score := finalGrade / s.maxGrade
	// Rounded to six places so the textString stays short.
	score = math.Round(score*1e6) / 1e6
	if score > 1 {
		score = 1
	}
	return score, nil
}
