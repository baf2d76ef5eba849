package actions

// Prediction is the expected outcome of a row in a dry run
type Prediction string

const (
	PredictCreate Prediction = "create"
	PredictUpdate Prediction = "update"
	PredictSkip   Prediction = "skip"
)

// Predict classifies a dry-run row: any record created makes it a create,
// otherwise any record updated makes it an update. Rows that failed or
// change nothing are skips.
func Predict(res *RowResult, ac *ActionContext) Prediction {
	if res == nil || !res.Succeeded {
		return PredictSkip
	}
	outcomes := []string{
		ac.MetaString(MetaProductOutcome),
		ac.MetaString(MetaVariantOutcome),
	}
	for _, o := range outcomes {
		if o == OutcomeCreated {
			return PredictCreate
		}
	}
	for _, o := range outcomes {
		if o == OutcomeUpdated {
			return PredictUpdate
		}
	}
	return PredictSkip
}
