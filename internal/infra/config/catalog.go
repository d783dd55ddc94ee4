package config

import (
	"fmt"
	"os"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Catalog тесты и тексты бота для первичного наполнения базы
type Catalog struct {
	Tests []struct {
		Name          string `yaml:"name"`
		Type          string `yaml:"type"`
		Duration      *int   `yaml:"duration"` // в минутах, пусто - без ограничения
		QuestionCount int    `yaml:"question_count"`
		PassingScore  int    `yaml:"passing_score"`
		Questions     []struct {
			Text        string   `yaml:"text"`
			Options     []string `yaml:"options"`
			Correct     int      `yaml:"correct"`
			Explanation string   `yaml:"explanation"`
		} `yaml:"questions"`
	} `yaml:"tests"`
	Messages map[string]string `yaml:"messages"`
}

// LoadCatalog читает и проверяет каталог тестов
func LoadCatalog(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{}
	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for _, t := range catalog.Tests {
		if t.Duration != nil && *t.Duration < 0 {
			return nil, fmt.Errorf("test %q: negative duration %d", t.Name, *t.Duration)
		}
		for i, q := range t.Questions {
			if q.Correct < 0 || q.Correct >= len(q.Options) {
				return nil, fmt.Errorf("test %q, question %d: correct option %d out of range", t.Name, i+1, q.Correct)
			}
		}
	}
	return catalog, nil
}

// CatalogTests тесты каталога в виде моделей
func (c *Catalog) CatalogTests() []model.CatalogTest {
	tests := make([]model.CatalogTest, 0, len(c.Tests))
	for _, t := range c.Tests {
		item := model.CatalogTest{
			Test: model.Test{
				TestName:      t.Name,
				TestType:      t.Type,
				Duration:      t.Duration,
				QuestionCount: t.QuestionCount,
				PassingScore:  t.PassingScore,
			},
		}
		for _, q := range t.Questions {
			item.Questions = append(item.Questions, model.Question{
				QuestionText:  q.Text,
				TestOptions:   q.Options,
				CorrectOption: q.Correct,
				Explanation:   q.Explanation,
			})
		}
		tests = append(tests, item)
	}
	return tests
}
