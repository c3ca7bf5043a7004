package models

import "time"

const (
	PROVIDER_GOOGLE = "google"
	PROVIDER_KAKAO  = "kakao"
	PROVIDER_NAVER  = "naver"
)

// SupportedProviders is the closed set of social login providers.
var SupportedProviders = []string{PROVIDER_GOOGLE, PROVIDER_KAKAO, PROVIDER_NAVER}

// IsSupportedProvider reports whether name is one of the known providers.
func IsSupportedProvider(name string) bool {
	for _, p := range SupportedProviders {
		if p == name {
			return true
		}
	}
	return false
}

// ProviderAccount stores external OAuth provider identities linked to a user.
// A user links each provider at most once, and one external identity cannot
// belong to two users; both are enforced by unique indexes.
type ProviderAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index:user_provider,unique" json:"user_id"`
	Provider       string    `gorm:"index:user_provider,unique;index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string    `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
