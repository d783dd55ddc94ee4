package model

// CatalogTest тест с вопросами для первичного наполнения каталога
type CatalogTest struct {
	Test      Test
	Questions []Question
}
