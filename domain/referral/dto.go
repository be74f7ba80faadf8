package referral

// RewardWeeksPerReferral is the number of free subscription weeks earned per
// successful referral.
const RewardWeeksPerReferral = 1

type ReferralStatsResponse struct {
	ReferralCode  string `json:"referral_code"`
	Position      int    `json:"position"`
	ReferralCount int    `json:"referral_count"`
	ShareCount    int    `json:"share_count"`
	RewardWeeks   int    `json:"reward_weeks"`
	ReferralURL   string `json:"referral_url"`
}

type ReferralLinkResponse struct {
	ReferralCode string `json:"referral_code"`
	ReferralURL  string `json:"referral_url"`
}

type TrackShareResponse struct {
	ReferralCode string `json:"referral_code"`
	ShareCount   int    `json:"share_count"`
}
