package conversion

import (
	"github.com/samber/lo"

	"video-conversion/internal/app/model"
)

// LanguageResolver picks the subtitle languages a status message refers to when the
// message itself does not name any. subs holds the job's sub-jobs, oldest request first.
type LanguageResolver interface {
	Resolve(outcome model.Outcome, subs []model.SubtitleJob) []string
}

// BestGuessResolver is an approximation: a result is attributed to the oldest open
// language, and a progress notice to every pending language.
type BestGuessResolver struct{}

func (BestGuessResolver) Resolve(outcome model.Outcome, subs []model.SubtitleJob) []string {
	switch outcome {
	case model.OutcomeSuccess, model.OutcomeFailure:
		oldest, ok := lo.Find(subs, func(s model.SubtitleJob) bool { return s.Status.Open() })
		if !ok {
			return nil
		}
		return []string{oldest.Language}
	case model.OutcomeProgress:
		pending := lo.Filter(subs, func(s model.SubtitleJob, _ int) bool {
			return s.Status == model.SubtitlePending
		})
		return lo.Map(pending, func(s model.SubtitleJob, _ int) string { return s.Language })
	}
	return nil
}
