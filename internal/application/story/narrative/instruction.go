// Package narrative 负责故事文本的生成协议：组装指令、调用叙事后端、严格校验返回文档。
package narrative

import (
	"fmt"

	"hakawati-story-api/internal/domain/entity"
)

// IllustrationStyle 所有插图描述共用的固定画风
const IllustrationStyle = "warm digital oil painting, magical realism, golden lighting, Damascene architecture details"

// BuildRules 由请求组装生成规则，顺序固定
func BuildRules(req entity.StoryRequest) []string {
	rules := []string{
		nameRule(req.ChildName),
		genderRule(req.ChildName, req.Gender),
		dialectRule(req.Dialect),
		moralRule(req),
	}
	if sk, ok := req.Sidekick(); ok {
		rules = append(rules, fmt.Sprintf(
			"%s is accompanied by %s. The companion appears in the scenes and reacts to what happens, but never replaces %s as the protagonist who makes the decisions.",
			req.ChildName, sk.Description, req.ChildName,
		))
	}
	if req.World != "" {
		rules = append(rules, fmt.Sprintf("Set the whole story in %s.", req.World))
	}
	rules = append(rules,
		fmt.Sprintf("Use vocabulary and sentence length suitable for a %d-year-old.", req.Age),
		"Every dictionary word must appear verbatim in the text of at least one page.",
	)
	return rules
}

func nameRule(name string) string {
	return fmt.Sprintf("The protagonist's name is %q. Use it exactly as written on every page; never translate, shorten, or substitute it.", name)
}

func genderRule(name string, g entity.Gender) string {
	if g == entity.GenderGirl {
		return fmt.Sprintf("%s is a girl. Use feminine pronouns and verb forms for %s consistently.", name, name)
	}
	return fmt.Sprintf("%s is a boy. Use masculine pronouns and verb forms for %s consistently.", name, name)
}

func dialectRule(d entity.Dialect) string {
	if d == entity.DialectStandard {
		return "Write in simple, accessible Modern Standard Arabic (Fusha)."
	}
	return "Write the dialogue and narration in a warm, polite Damascus Syrian dialect (Shami)."
}

func moralRule(req entity.StoryRequest) string {
	if req.HasMoral() {
		return fmt.Sprintf("The moral of the story revolves around: %s.", req.MoralTopic)
	}
	return "Choose a suitable positive moral for a child (e.g., honesty, kindness, or curiosity) and build the story around it."
}
