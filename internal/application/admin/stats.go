package admin

import (
	"math"
	"sort"
	"time"

	"hakawati-story-api/internal/domain/entity"
)

// Share 分布中的一项
type Share struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// Overview 管理端概览，基于最近一个窗口的记录计算
type Overview struct {
	TotalStories     int       `json:"total_stories"`
	CompletedStories int       `json:"completed_stories"`
	UniqueUsers      int       `json:"unique_users"`
	Worlds           []Share   `json:"worlds"`
	Sidekicks        []Share   `json:"sidekicks"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// UserSummary 按邮箱聚合的用户
type UserSummary struct {
	Email      string    `json:"email"`
	Count      int       `json:"count"`
	LastActive time.Time `json:"last_active"`
}

// AnonymousUser 没有邮箱的记录归入此项
const AnonymousUser = "زائر مجهول"

// BuildOverview 计算概览。records 须按创建时间倒序。
func BuildOverview(records []*entity.StoryRecord, now time.Time) *Overview {
	worlds := make(map[string]int)
	sidekicks := make(map[string]int)
	users := make(map[string]struct{})
	completed := 0

	for _, r := range records {
		users[userKey(r)] = struct{}{}
		if r.IsCompleted() {
			completed++
		}
		if bucket, ok := ClassifyWorld(r); ok {
			worlds[bucket]++
		}
		if r.SidekickID != "" {
			sidekicks[r.SidekickID]++
		}
	}

	total := len(records)
	return &Overview{
		TotalStories:     total,
		CompletedStories: completed,
		UniqueUsers:      len(users),
		Worlds:           shares(worlds, total, WorldLabel),
		Sidekicks:        shares(sidekicks, total, SidekickLabel),
		GeneratedAt:      now.UTC(),
	}
}

func shares(counts map[string]int, total int, label func(string) string) []Share {
	denom := total
	if denom == 0 {
		denom = 1
	}
	out := make([]Share, 0, len(counts))
	for k, c := range counts {
		out = append(out, Share{
			Key:     k,
			Label:   label(k),
			Count:   c,
			Percent: int(math.Round(float64(c) * 100 / float64(denom))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// AggregateUsers 按邮箱聚合；records 按时间倒序，首次出现即最近活跃时间
func AggregateUsers(records []*entity.StoryRecord) []UserSummary {
	index := make(map[string]int)
	var out []UserSummary
	for _, r := range records {
		key := userKey(r)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, UserSummary{Email: key, LastActive: r.CreatedAt})
			i = len(out) - 1
		}
		out[i].Count++
	}
	return out
}

func userKey(r *entity.StoryRecord) string {
	if r.OwnerEmail != "" {
		return r.OwnerEmail
	}
	return AnonymousUser
}
