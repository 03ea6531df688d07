package runtime

// User-facing texts of the booking flow.
const (
	PromptOrigin      = "Where do you want to leave from?"
	PromptDestination = "Where do you want to go to?"
	PromptBudget      = "How much do you want to spend on this trip?"

	PromptStartDate = "On what date would you like to travel?"
	PromptEndDate   = "On what date would you like to return?"
	PromptDateRetry = "I'm sorry, for best results, please enter your travel date including the month, day and year."

	PromptConfirmRetry = "Please answer yes or no."

	MessageApology = "I am sorry, I will ask the technicians to improve me in the near future"
)
