package narrative

import (
	"fmt"
	"strings"
)

// ConfigurationError 缺少凭据或配置，在任何网络 I/O 之前返回
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "narrative backend not configured: " + e.Reason
}

// ContractError 后端返回的文档不满足契约；不做修复，也不暴露部分结果
type ContractError struct {
	Issues []string
}

func (e *ContractError) Error() string {
	if len(e.Issues) == 0 {
		return "generated story violates the document contract"
	}
	return "generated story violates the document contract: " + strings.Join(e.Issues, "; ")
}

// BackendError 叙事后端调用失败
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("narrative backend %s failed: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
