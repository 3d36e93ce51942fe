package dto

// DeleteStoriesRequest 批量删除；ids 为空时删除当前快照窗口
type DeleteStoriesRequest struct {
	IDs []string `json:"ids"`
}

// DeleteStoriesResponse 删除结果
type DeleteStoriesResponse struct {
	Deleted int64 `json:"deleted"`
}

// UpdateDisplayNameRequest 更新显示名
type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// DisplayNameResponse 当前显示名
type DisplayNameResponse struct {
	DisplayName string `json:"display_name"`
}
