package entity

// DictionaryEntry 魔法词典词条
type DictionaryEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// InteractiveOption 互动问题选项
type InteractiveOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

// InteractiveQuestion 全篇唯一的互动问题
type InteractiveQuestion struct {
	Text    string              `json:"text"`
	Options []InteractiveOption `json:"options"`
}

// CorrectIndex 返回正确选项下标，不存在时返回 -1
func (q InteractiveQuestion) CorrectIndex() int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

// Proverb 结尾奖励的谚语
type Proverb struct {
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// Page 一页场景
type Page struct {
	Text               string `json:"text"`
	IllustrationPrompt string `json:"illustration_prompt"`
}

// StoryDocument 生成结果。构造后只读，所有访问器返回副本。
type StoryDocument struct {
	title      string
	pages      []Page
	dictionary []DictionaryEntry
	question   InteractiveQuestion
	badge      string
	proverb    Proverb
}

// NewStoryDocument 构造故事文档；调用方负责事先完成校验
func NewStoryDocument(title string, pages []Page, dictionary []DictionaryEntry, question InteractiveQuestion, badge string, proverb Proverb) *StoryDocument {
	return &StoryDocument{
		title:      title,
		pages:      append([]Page(nil), pages...),
		dictionary: append([]DictionaryEntry(nil), dictionary...),
		question:   copyQuestion(question),
		badge:      badge,
		proverb:    proverb,
	}
}

func copyQuestion(q InteractiveQuestion) InteractiveQuestion {
	return InteractiveQuestion{
		Text:    q.Text,
		Options: append([]InteractiveOption(nil), q.Options...),
	}
}

func (d *StoryDocument) Title() string { return d.title }

func (d *StoryDocument) PageCount() int { return len(d.pages) }

// Page 返回第 i 页，越界时 ok 为 false
func (d *StoryDocument) Page(i int) (Page, bool) {
	if i < 0 || i >= len(d.pages) {
		return Page{}, false
	}
	return d.pages[i], true
}

func (d *StoryDocument) Pages() []Page {
	return append([]Page(nil), d.pages...)
}

func (d *StoryDocument) Dictionary() []DictionaryEntry {
	return append([]DictionaryEntry(nil), d.dictionary...)
}

func (d *StoryDocument) Question() InteractiveQuestion {
	return copyQuestion(d.question)
}

func (d *StoryDocument) Badge() string { return d.badge }

func (d *StoryDocument) Proverb() Proverb { return d.proverb }

// Vocabulary 返回词典中的词语列表
func (d *StoryDocument) Vocabulary() []string {
	words := make([]string, 0, len(d.dictionary))
	for _, e := range d.dictionary {
		words = append(words, e.Word)
	}
	return words
}
