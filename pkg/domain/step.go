package domain

// Step identifies one stage of the booking waterfall.
type Step string

const (
	StepCollectOrigin      Step = "collect_origin"
	StepCollectDestination Step = "collect_destination"
	StepCollectStartDate   Step = "collect_start_date"
	StepCollectEndDate     Step = "collect_end_date"
	StepCollectBudget      Step = "collect_budget"
	StepConfirm            Step = "confirm"
	StepFinalize           Step = "finalize"
)

// Waterfall is the fixed order in which steps run.
var Waterfall = []Step{
	StepCollectOrigin,
	StepCollectDestination,
	StepCollectStartDate,
	StepCollectEndDate,
	StepCollectBudget,
	StepConfirm,
	StepFinalize,
}

// Index returns the position of the step in the Waterfall, or -1.
func (s Step) Index() int {
	for i, step := range Waterfall {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step that follows s. The second value is false for the
// last step or an unknown one.
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Waterfall) {
		return "", false
	}
	return Waterfall[i+1], true
}

// SubFlowID names a delegated sub-flow.
type SubFlowID string

const (
	SubFlowStartDate SubFlowID = "start_date"
	SubFlowEndDate   SubFlowID = "end_date"
)
