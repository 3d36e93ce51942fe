package entity

// Owner 经身份提供方校验后的会话所有者
type Owner struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Admin       bool   `json:"admin"`
}
