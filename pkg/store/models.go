// Package store is the DB gateway: CRUD over the
// holder/credential/credential_instance relational schema.
package store

import "time"

// Holder is the subject of credentials.
type Holder struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential is an issuer-owned template: add-only with respect to its
// instances' registry membership.
type Credential struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	HolderID  string    `gorm:"index;not null" json:"holder_id"`
	Holder    Holder    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SchemaID  uint32    `json:"schema_id"`
	Details   string    `json:"details"` // JSON-string
	CreatedAt time.Time `json:"created_at"`
}

// CredentialInstance is a holder-presentable copy of a credential with a
// fresh nonce; Hash is the authoritative, recomputable registry identity.
type CredentialInstance struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	CredentialID string     `gorm:"index;not null" json:"credential_id"`
	Credential   Credential `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Data         string     `json:"data"` // canonical JSON of zkvmtypes.CredentialInstanceData
	Hash         string     `gorm:"index" json:"hash"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName overrides pin singular table names, since gorm's default
// pluralization would otherwise produce "holders"/"credentials".
func (Holder) TableName() string              { return "holder" }
func (Credential) TableName() string          { return "credential" }
func (CredentialInstance) TableName() string  { return "credential_instance" }
