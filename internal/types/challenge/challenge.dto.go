package challenge

type UserChallengesResponse struct {
	Active    []*UserChallengeWithChallenge `json:"active"`
	Completed []*UserChallengeWithChallenge `json:"completed"`
}

type EvaluateResponse struct {
	Completed []*UserChallengeWithChallenge `json:"completed"`
}

type AssignResponse struct {
	Assigned []*UserChallengeWithChallenge `json:"assigned"`
}
