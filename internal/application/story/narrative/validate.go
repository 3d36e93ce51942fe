package narrative

import (
	"fmt"
	"strings"

	"hakawati-story-api/internal/domain/entity"
)

// validateDocument 按契约逐项检查，收集全部问题后一次性返回
func validateDocument(doc *wireDocument, targetPages int) (*entity.StoryDocument, error) {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	title := ""
	if doc.Title != nil {
		title = strings.TrimSpace(*doc.Title)
	}
	if title == "" {
		add("title is missing")
	}

	if len(doc.Pages) != targetPages {
		add("expected %d pages, got %d", targetPages, len(doc.Pages))
	}
	pages := make([]entity.Page, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		text := strings.TrimSpace(p.Text)
		prompt := strings.TrimSpace(p.IllustrationPrompt)
		if text == "" {
			add("page %d text is empty", i)
		}
		if prompt == "" {
			add("page %d illustration prompt is empty", i)
		}
		pages = append(pages, entity.Page{Text: text, IllustrationPrompt: prompt})
	}

	seen := make(map[string]struct{}, len(doc.Dictionary))
	dictionary := make([]entity.DictionaryEntry, 0, len(doc.Dictionary))
	for i, e := range doc.Dictionary {
		word := strings.TrimSpace(e.Word)
		if word == "" {
			add("dictionary entry %d has an empty word", i)
			continue
		}
		key := strings.ToLower(word)
		if _, dup := seen[key]; dup {
			add("dictionary word %q is duplicated", word)
			continue
		}
		seen[key] = struct{}{}
		dictionary = append(dictionary, entity.DictionaryEntry{Word: word, Definition: strings.TrimSpace(e.Definition)})
	}

	var question entity.InteractiveQuestion
	if doc.InteractionQuestion == nil {
		add("interaction question is missing")
	} else {
		q := doc.InteractionQuestion
		question.Text = strings.TrimSpace(q.Text)
		if question.Text == "" {
			add("interaction question text is empty")
		}
		if len(q.Options) != 2 {
			add("interaction question must have exactly 2 options, got %d", len(q.Options))
		}
		correct := 0
		for i, o := range q.Options {
			if o.IsCorrect == nil {
				add("option %d is missing isCorrect", i)
			} else if *o.IsCorrect {
				correct++
			}
			if strings.TrimSpace(o.Text) == "" {
				add("option %d text is empty", i)
			}
			question.Options = append(question.Options, entity.InteractiveOption{
				Text:      strings.TrimSpace(o.Text),
				IsCorrect: o.IsCorrect != nil && *o.IsCorrect,
				Feedback:  strings.TrimSpace(o.Feedback),
			})
		}
		if correct != 1 {
			add("interaction question must have exactly one correct option, got %d", correct)
		}
	}

	badge := ""
	if doc.MoralBadgeName != nil {
		badge = strings.TrimSpace(*doc.MoralBadgeName)
	}
	if badge == "" {
		add("moral badge name is missing")
	}

	var proverb entity.Proverb
	if doc.Proverb == nil || strings.TrimSpace(doc.Proverb.Text) == "" {
		add("proverb text is missing")
	} else {
		proverb = entity.Proverb{
			Text:        strings.TrimSpace(doc.Proverb.Text),
			Explanation: strings.TrimSpace(doc.Proverb.Explanation),
		}
	}

	if len(issues) > 0 {
		return nil, &ContractError{Issues: issues}
	}
	return entity.NewStoryDocument(title, pages, dictionary, question, badge, proverb), nil
}

// ParseDocument 解析并校验后端原始输出
func ParseDocument(rawText string, targetPages int) (*entity.StoryDocument, error) {
	doc, _, err := parseDocument(rawText)
	if err != nil {
		return nil, err
	}
	return validateDocument(doc, targetPages)
}
