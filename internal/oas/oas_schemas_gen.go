// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"time"
)

type AdminKey struct {
	APIKey string
	Roles  []string
}

// GetAPIKey returns the value of APIKey.
func (s *AdminKey) GetAPIKey() string {
	return s.APIKey
}

// GetRoles returns the value of Roles.
func (s *AdminKey) GetRoles() []string {
	return s.Roles
}

// SetAPIKey sets the value of APIKey.
func (s *AdminKey) SetAPIKey(val string) {
	s.APIKey = val
}

// SetRoles sets the value of Roles.
func (s *AdminKey) SetRoles(val []string) {
	s.Roles = val
}

// Ref: #/components/schemas/CreateKeyRequest
type CreateKeyRequest struct {
	Quota     OptQuota       `json:"quota"`
	RateLimit OptLegacyQuota `json:"rateLimit"`
}

// GetQuota returns the value of Quota.
func (s *CreateKeyRequest) GetQuota() OptQuota {
	return s.Quota
}

// GetRateLimit returns the value of RateLimit.
func (s *CreateKeyRequest) GetRateLimit() OptLegacyQuota {
	return s.RateLimit
}

// SetQuota sets the value of Quota.
func (s *CreateKeyRequest) SetQuota(val OptQuota) {
	s.Quota = val
}

// SetRateLimit sets the value of RateLimit.
func (s *CreateKeyRequest) SetRateLimit(val OptLegacyQuota) {
	s.RateLimit = val
}

// Ref: #/components/schemas/CreatedKey
type CreatedKey struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Quota     Quota     `json:"quota"`
}

// GetKey returns the value of Key.
func (s *CreatedKey) GetKey() string {
	return s.Key
}

// GetCreatedAt returns the value of CreatedAt.
func (s *CreatedKey) GetCreatedAt() time.Time {
	return s.CreatedAt
}

// GetExpiresAt returns the value of ExpiresAt.
func (s *CreatedKey) GetExpiresAt() time.Time {
	return s.ExpiresAt
}

// GetQuota returns the value of Quota.
func (s *CreatedKey) GetQuota() Quota {
	return s.Quota
}

// SetKey sets the value of Key.
func (s *CreatedKey) SetKey(val string) {
	s.Key = val
}

// SetCreatedAt sets the value of CreatedAt.
func (s *CreatedKey) SetCreatedAt(val time.Time) {
	s.CreatedAt = val
}

// SetExpiresAt sets the value of ExpiresAt.
func (s *CreatedKey) SetExpiresAt(val time.Time) {
	s.ExpiresAt = val
}

// SetQuota sets the value of Quota.
func (s *CreatedKey) SetQuota(val Quota) {
	s.Quota = val
}

// Ref: #/components/schemas/KeyList
type KeyList struct {
	Keys []MaskedKey `json:"keys"`
}

// GetKeys returns the value of Keys.
func (s *KeyList) GetKeys() []MaskedKey {
	return s.Keys
}

// SetKeys sets the value of Keys.
func (s *KeyList) SetKeys(val []MaskedKey) {
	s.Keys = val
}

// Quota in the field names of files written by earlier versions.
// Ref: #/components/schemas/LegacyQuota
type LegacyQuota struct {
	Requests int `json:"requests"`
	Duration int `json:"duration"`
}

// GetRequests returns the value of Requests.
func (s *LegacyQuota) GetRequests() int {
	return s.Requests
}

// GetDuration returns the value of Duration.
func (s *LegacyQuota) GetDuration() int {
	return s.Duration
}

// SetRequests sets the value of Requests.
func (s *LegacyQuota) SetRequests(val int) {
	s.Requests = val
}

// SetDuration sets the value of Duration.
func (s *LegacyQuota) SetDuration(val int) {
	s.Duration = val
}

// Ref: #/components/schemas/MaskedKey
type MaskedKey struct {
	Key             string    `json:"key"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Quota           Quota     `json:"quota"`
	TokensRemaining int       `json:"tokensRemaining"`
	Expired         bool      `json:"expired"`
}

// GetKey returns the value of Key.
func (s *MaskedKey) GetKey() string {
	return s.Key
}

// GetCreatedAt returns the value of CreatedAt.
func (s *MaskedKey) GetCreatedAt() time.Time {
	return s.CreatedAt
}

// GetExpiresAt returns the value of ExpiresAt.
func (s *MaskedKey) GetExpiresAt() time.Time {
	return s.ExpiresAt
}

// GetQuota returns the value of Quota.
func (s *MaskedKey) GetQuota() Quota {
	return s.Quota
}

// GetTokensRemaining returns the value of TokensRemaining.
func (s *MaskedKey) GetTokensRemaining() int {
	return s.TokensRemaining
}

// GetExpired returns the value of Expired.
func (s *MaskedKey) GetExpired() bool {
	return s.Expired
}

// SetKey sets the value of Key.
func (s *MaskedKey) SetKey(val string) {
	s.Key = val
}

// SetCreatedAt sets the value of CreatedAt.
func (s *MaskedKey) SetCreatedAt(val time.Time) {
	s.CreatedAt = val
}

// SetExpiresAt sets the value of ExpiresAt.
func (s *MaskedKey) SetExpiresAt(val time.Time) {
	s.ExpiresAt = val
}

// SetQuota sets the value of Quota.
func (s *MaskedKey) SetQuota(val Quota) {
	s.Quota = val
}

// SetTokensRemaining sets the value of TokensRemaining.
func (s *MaskedKey) SetTokensRemaining(val int) {
	s.TokensRemaining = val
}

// SetExpired sets the value of Expired.
func (s *MaskedKey) SetExpired(val bool) {
	s.Expired = val
}

// Ref: #/components/schemas/Message
type Message struct {
	Message string `json:"message"`
}

// GetMessage returns the value of Message.
func (s *Message) GetMessage() string {
	return s.Message
}

// SetMessage sets the value of Message.
func (s *Message) SetMessage(val string) {
	s.Message = val
}

// NewOptCreateKeyRequest returns new OptCreateKeyRequest with value set to v.
func NewOptCreateKeyRequest(v CreateKeyRequest) OptCreateKeyRequest {
	return OptCreateKeyRequest{
		Value: v,
		Set:   true,
	}
}

// OptCreateKeyRequest is optional CreateKeyRequest.
type OptCreateKeyRequest struct {
	Value CreateKeyRequest
	Set   bool
}

// IsSet returns true if OptCreateKeyRequest was set.
func (o OptCreateKeyRequest) IsSet() bool { return o.Set }

// Reset unsets value.
func (o *OptCreateKeyRequest) Reset() {
	var v CreateKeyRequest
	o.Value = v
	o.Set = false
}

// SetTo sets value to v.
func (o *OptCreateKeyRequest) SetTo(v CreateKeyRequest) {
	o.Set = true
	o.Value = v
}

// Get returns value and boolean that denotes whether value was set.
func (o OptCreateKeyRequest) Get() (v CreateKeyRequest, ok bool) {
	if !o.Set {
		return v, false
	}
	return o.Value, true
}

// Or returns value if set, or given parameter if does not.
func (o OptCreateKeyRequest) Or(d CreateKeyRequest) CreateKeyRequest {
	if v, ok := o.Get(); ok {
		return v
	}
	return d
}

// NewOptLegacyQuota returns new OptLegacyQuota with value set to v.
func NewOptLegacyQuota(v LegacyQuota) OptLegacyQuota {
	return OptLegacyQuota{
		Value: v,
		Set:   true,
	}
}

// OptLegacyQuota is optional LegacyQuota.
type OptLegacyQuota struct {
	Value LegacyQuota
	Set   bool
}

// IsSet returns true if OptLegacyQuota was set.
func (o OptLegacyQuota) IsSet() bool { return o.Set }

// Reset unsets value.
func (o *OptLegacyQuota) Reset() {
	var v LegacyQuota
	o.Value = v
	o.Set = false
}

// SetTo sets value to v.
func (o *OptLegacyQuota) SetTo(v LegacyQuota) {
	o.Set = true
	o.Value = v
}

// Get returns value and boolean that denotes whether value was set.
func (o OptLegacyQuota) Get() (v LegacyQuota, ok bool) {
	if !o.Set {
		return v, false
	}
	return o.Value, true
}

// Or returns value if set, or given parameter if does not.
func (o OptLegacyQuota) Or(d LegacyQuota) LegacyQuota {
	if v, ok := o.Get(); ok {
		return v
	}
	return d
}

// NewOptQuota returns new OptQuota with value set to v.
func NewOptQuota(v Quota) OptQuota {
	return OptQuota{
		Value: v,
		Set:   true,
	}
}

// OptQuota is optional Quota.
type OptQuota struct {
	Value Quota
	Set   bool
}

// IsSet returns true if OptQuota was set.
func (o OptQuota) IsSet() bool { return o.Set }

// Reset unsets value.
func (o *OptQuota) Reset() {
	var v Quota
	o.Value = v
	o.Set = false
}

// SetTo sets value to v.
func (o *OptQuota) SetTo(v Quota) {
	o.Set = true
	o.Value = v
}

// Get returns value and boolean that denotes whether value was set.
func (o OptQuota) Get() (v Quota, ok bool) {
	if !o.Set {
		return v, false
	}
	return o.Value, true
}

// Or returns value if set, or given parameter if does not.
func (o OptQuota) Or(d Quota) Quota {
	if v, ok := o.Get(); ok {
		return v
	}
	return d
}

// Token-bucket policy, limit requests per windowSeconds.
// Ref: #/components/schemas/Quota
type Quota struct {
	Limit         int `json:"limit"`
	WindowSeconds int `json:"windowSeconds"`
}

// GetLimit returns the value of Limit.
func (s *Quota) GetLimit() int {
	return s.Limit
}

// GetWindowSeconds returns the value of WindowSeconds.
func (s *Quota) GetWindowSeconds() int {
	return s.WindowSeconds
}

// SetLimit sets the value of Limit.
func (s *Quota) SetLimit(val int) {
	s.Limit = val
}

// SetWindowSeconds sets the value of WindowSeconds.
func (s *Quota) SetWindowSeconds(val int) {
	s.WindowSeconds = val
}
