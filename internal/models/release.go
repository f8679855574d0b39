package models

import "time"

// EMRRelease describes one version of the hosted software stack
// (Hadoop, Spark, etc. as bundled by AWS EMR). Releases are catalog
// entries: immutable once referenced by a cluster, and only consulted
// for eligibility filtering at creation time.
type EMRRelease struct {
	Version      string `json:"version" gorm:"primarykey;size:50"`
	ChangelogURL string `json:"changelog_url"`
	HelpText     string `json:"help_text"`

	IsActive       bool `json:"is_active" gorm:"default:true"`
	IsExperimental bool `json:"is_experimental" gorm:"default:false"`
	IsDeprecated   bool `json:"is_deprecated" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the EMRRelease model
func (EMRRelease) TableName() string {
	return "emr_releases"
}
