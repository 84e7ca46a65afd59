package models

import "time"

// AnalysisData is a free-text narrative note for one period storage key
// (month string or "all-time")
type AnalysisData struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompanyProfile holds the account-level profile shown on the dashboard
type CompanyProfile struct {
	Name         string `json:"name"`
	FacebookURL  string `json:"facebookUrl"`
	InstagramURL string `json:"instagramUrl"`
	LogoURL      string `json:"logoUrl"`
}

// UserData is the complete persisted document for one user: every dataset,
// the selection filter, follower data, profile and analysis notes. This is
// also the backup export shape.
type UserData struct {
	DataSets         []DataSet                       `json:"dataSets"`
	Selection        SelectionState                  `json:"selectionState"`
	MonthlyFollowers map[string]MonthlyFollowerDelta `json:"monthlyFollowers"`
	BaseFollowers    BaseFollowerData                `json:"baseFollowers"`
	CompanyProfile   CompanyProfile                  `json:"companyProfile"`
	Analyses         map[string]AnalysisData         `json:"analyses"`
}

// EmptyUserData returns a UserData with all maps initialized
func EmptyUserData() UserData {
	return UserData{
		DataSets: []DataSet{},
		Selection: SelectionState{
			DataSets: map[string]bool{},
			Posts:    map[string]bool{},
		},
		MonthlyFollowers: map[string]MonthlyFollowerDelta{},
		Analyses:         map[string]AnalysisData{},
	}
}
