package talentclient

import "context"

type TalentInterface interface {
	GetPassport(ctx context.Context, address string) (*Passport, error)
}

type Passport struct {
	BuilderScore   float64 `json:"builderScore"`
	ActivityScore  float64 `json:"activityScore"`
	IdentityScore  float64 `json:"identityScore"`
	SkillsScore    float64 `json:"skillsScore"`
	HumanCheckmark bool    `json:"humanCheckmark"`
	PassportID     uint64  `json:"passportId"`
	WalletAddress  string  `json:"walletAddress"`
}
