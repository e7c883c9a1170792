package topics

import "github.com/ternarybob/seoforge/internal/models"

// Topic names
const (
	General          = "General"
	Furniture        = "Furniture"
	FurnitureProduct = "FurnitureProduct"
	Medicine         = "Medicine"
	Tech             = "Tech"
	Finance          = "Finance"
	Gambling         = "Gambling"
	RealEstate       = "Real Estate"
	Travel           = "Travel"
	Logistics        = "Logistics"
)

// DefaultTopic is used when a run does not name one
const DefaultTopic = Logistics

const logisticsProtocol = `LOGISTICS EXPERT PROTOCOL v4.0 (AUTHORITY MODE):
1. ПЕРСОНА: Директор по логистике. Сухой, технический стиль.
2. СТИЛЬ ТЕКСТА: Markdown. Заголовки #, ##, ###.
3. ТЕРМИНЫ: Инкотермс 2020, КТС, ТН ВЭД, LCL/FCL, дроп-офф, демередж.
4. ТАБЛИЦЫ: 5+ профессиональных Markdown-таблиц с тех. данными.`

const furnitureProtocol = `ELITE ITALIAN FURNITURE ARTICLE PROTOCOL v6.0:
1. ПЕРСОНА: Эксперт по итальянской мебели (Baxter, Minotti).
2. СТИЛЬ ТЕКСТА: СТРОГО HTML (<h2>, <h3>, <p>, <ul>, <li>, <strong>).
3. ТАБЛИЦЫ: HTML таблицы с опциями отделки и размерами.
4. SEO: Оптимизация под элитный сегмент, ручная работа, массив ореха.`

const furnitureProductProtocol = `ELITE PRODUCT CARD PROTOCOL v7.0 (ITALIAN FURNITURE):
1. ПЕРСОНА: Product Manager элитного мебельного салона.
2. ФОРМАТ: СТРОГО HTML для поля "text".
3. МИКРОРАЗМЕТКА: Обязательно JSON-LD "Product" в конце текста.
4. КОНТЕНТ: Описание конкретной модели, материалов (нубук, мрамор), фабрики.
5. ТАБЛИЦЫ: HTML таблицы с характеристиками (Размеры, Отделка).`

// builtinProfiles returns the shipped topic profiles in display order
func builtinProfiles() []models.TopicProfile {
	return []models.TopicProfile{
		{
			Name:          FurnitureProduct,
			Label:         "Ит. мебель (Карточка)",
			Identity:      "Elite E-commerce Product Manager for Italian Luxury Furniture Brands",
			Instructions:  furnitureProductProtocol,
			OutputFormat:  models.OutputFormatHTML,
			RequireJSONLD: true,
		},
		{
			Name:         Furniture,
			Label:        "Ит. мебель (Статья)",
			Identity:     "Senior Luxury Interior Designer and Elite Italian Furniture Specialist",
			Instructions: furnitureProtocol,
			OutputFormat: models.OutputFormatHTML,
		},
		{
			Name:         Logistics,
			Label:        "Логистика (Карго/ВЭД)",
			Identity:     "Senior Supply Chain Strategist and International Freight Forwarding Specialist",
			Instructions: logisticsProtocol,
			OutputFormat: models.OutputFormatMarkdown,
			Limits: models.ContentLimits{
				H1MaxChars:      190,
				ExcerptMaxChars: 250,
				FAQTargetChars:  1500,
				MinWords:        3000,
				MinTables:       5,
			},
		},
		{
			Name:         General,
			Label:        "Общая тема",
			Identity:     "expert SEO copywriter and content strategist",
			Instructions: "General expert SEO content protocol. Professional language, high quality, clear structure.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         Medicine,
			Label:        "Медицина",
			Identity:     "highly qualified medical professional",
			Instructions: "Medical expert protocol. Accurate data, professional terms, trustworthy tone.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         Tech,
			Label:        "Технологии",
			Identity:     "senior software engineer and technology reviewer",
			Instructions: "Tech specialist protocol. Deep analysis, specifications, latest trends.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         Finance,
			Label:        "Финансы",
			Identity:     "certified financial analyst",
			Instructions: "Financial analyst protocol. Data-driven, professional, risk-aware.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         Gambling,
			Label:        "Гемблинг",
			Identity:     "veteran iGaming SEO specialist",
			Instructions: "iGaming SEO protocol. High energy, conversion-focused, compliance-aware.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         RealEstate,
			Label:        "Недвижимость",
			Identity:     "professional real estate consultant",
			Instructions: "Real estate consultant protocol. Market analysis, location insights, investment value.",
			OutputFormat: models.OutputFormatMarkdown,
		},
		{
			Name:         Travel,
			Label:        "Путешествия",
			Identity:     "seasoned travel journalist",
			Instructions: "Travel writer protocol. Evocative descriptions, practical tips, logistics info.",
			OutputFormat: models.OutputFormatMarkdown,
		},
	}
}
