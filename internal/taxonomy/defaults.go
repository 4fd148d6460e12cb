package taxonomy

import "github.com/deusflow/signalfeed/internal/content"

// Default returns a fresh copy of the built-in taxonomy. The inclusion lists
// are deliberately broad; the denylists are deliberately short.
func Default() Taxonomy {
	return Taxonomy{
		Relevance: Relevance{
			Exclude: []string{
				"horoscope", "recipe", "obituary", "crossword", "lottery results",
				"celebrity gossip", "sports scores", "weather forecast",
			},
			Include: []string{
				"marketing", "advertising", "martech", "adtech", "brand", "consumer",
				"customer", "retail", "ecommerce", "e-commerce", "media", "agency", "campaign",
			},
			BusinessTerms: []string{
				"company", "business", "revenue", "market", "industry", "growth",
				"strategy", "ceo", "investors", "earnings", "profit", "sales",
			},
			IndustryTerms: []string{
				"ai", "technology", "platform", "software", "data", "digital", "cloud",
				"streaming", "fintech", "insurtech", "healthtech", "automation",
			},
			ActionVerbs: []string{
				"launches", "launched", "announces", "announced", "acquires", "acquired",
				"partners", "raises", "reports", "unveils", "expands", "introduces", "releases",
			},
			TrustedSources: []string{
				"Adweek", "AdExchanger", "Marketing Dive", "Digiday", "MarTech", "Ad Age",
			},
			MinTextLength: 80,
		},
		Classification: Classification{
			EntityWeight: 3,
			TopicWeight:  1,
			Fallback:     content.VerticalTechMedia,
			GenericTerms: []string{
				"marketing", "marketers", "advertising", "advertisers", "brand", "brands",
				"campaign", "digital", "technology", "tech", "data",
			},
			Verticals: defaultVerticals(),
		},
		Scoring: Scoring{
			Base: 30,
			ReputableSources: []string{
				"Adweek", "AdExchanger", "Marketing Dive", "Digiday", "Ad Age", "MarTech",
				"TechCrunch", "Reuters", "Bloomberg", "The Wall Street Journal", "Axios",
			},
			SourceBonus: 10,
			Martech: Category{
				Terms: []string{
					"martech", "marketing automation", "marketing technology", "customer data platform",
					"cdp", "personalization", "email marketing", "content marketing", "attribution",
					"segmentation", "customer journey", "omnichannel",
				},
				PerMatch: 5,
				Cap:      20,
			},
			Adtech: Category{
				Terms: []string{
					"ad platform", "adtech", "ad tech", "programmatic", "advertising", "retail media",
					"connected tv", "ctv", "dsp", "ssp", "ad exchange", "targeting", "ad spend",
					"third-party cookies", "measurement",
				},
				PerMatch: 5,
				Cap:      20,
			},
			CRM: Category{
				Terms: []string{
					"crm", "customer relationship", "loyalty", "retention", "lifecycle", "churn",
					"customer experience", "salesforce", "hubspot",
				},
				PerMatch: 5,
				Cap:      15,
			},
			Enterprise: Category{
				Terms: []string{
					"ai", "artificial intelligence", "launch", "launches", "acquisition", "acquires",
					"partnership", "funding", "revenue", "earnings", "layoffs", "ipo", "merger",
					"investment", "strategy",
				},
				PerMatch: 4,
				Cap:      16,
			},
			Irrelevant: Category{
				Terms: []string{
					"celebrity", "horoscope", "recipe", "red carpet", "fashion week", "box office",
					"gossip", "reality tv", "dating", "lottery",
				},
				PerMatch: 15,
				Cap:      45,
			},
			VerticalBonus: map[content.Vertical]int{
				content.VerticalTechMedia:  10,
				content.VerticalFinancial:  8,
				content.VerticalConsumer:   8,
				content.VerticalHealthcare: 6,
				content.VerticalInsurance:  6,
				content.VerticalAutomotive: 5,
				content.VerticalTelecom:    5,
				content.VerticalTravel:     5,
				content.VerticalEducation:  4,
				content.VerticalServices:   4,
				content.VerticalPolitical:  3,
			},
		},
		GenericPhrases: []string{
			"in today's fast-paced",
			"in today's digital landscape",
			"game-changer",
			"game changer",
			"it is important to note",
			"stay ahead of the curve",
			"ever-evolving landscape",
			"this development highlights",
			"this news underscores",
			"businesses should take note",
			"marketers should pay attention",
			"paradigm shift",
			"unlock new opportunities",
			"significant implications",
			"navigate the complexities",
			"remains to be seen",
		},
	}
}

func defaultVerticals() map[content.Vertical]VerticalKeywords {
	return map[content.Vertical]VerticalKeywords{
		content.VerticalTechMedia: {
			Entities: []string{
				"google", "meta", "microsoft", "apple", "openai", "netflix", "disney",
				"the trade desk", "adobe", "tiktok", "spotify", "youtube", "nvidia", "snap",
				"pinterest", "roku",
			},
			Topics: []string{
				"ai", "artificial intelligence", "generative ai", "ad platform", "adtech",
				"software", "streaming", "publisher", "programmatic", "saas", "cloud",
				"social media", "technology",
			},
		},
		content.VerticalConsumer: {
			Entities: []string{
				"walmart", "target", "amazon", "costco", "kroger", "nike", "procter & gamble",
				"unilever", "coca-cola", "pepsico", "starbucks", "mcdonald's", "shopify",
			},
			Topics: []string{
				"retail", "retailer", "retailers", "ecommerce", "e-commerce", "shoppers",
				"consumer", "grocery", "cpg", "holiday shopping",
			},
		},
		content.VerticalFinancial: {
			Entities: []string{
				"jpmorgan", "goldman sachs", "visa", "mastercard", "paypal", "american express",
				"bank of america", "wells fargo", "citi", "stripe", "fidelity",
			},
			Topics: []string{
				"bank", "banking", "fintech", "payments", "credit card", "lending", "mortgage",
				"wealth management", "interest rates",
			},
		},
		content.VerticalHealthcare: {
			Entities: []string{
				"pfizer", "cvs", "unitedhealth", "walgreens", "kaiser", "moderna",
				"johnson & johnson", "hca",
			},
			Topics: []string{
				"healthcare", "health care", "hospital", "patients", "pharma",
				"pharmaceutical", "telehealth", "medical", "clinical",
			},
		},
		content.VerticalInsurance: {
			Entities: []string{
				"aig", "geico", "progressive", "state farm", "allstate", "metlife",
				"prudential", "lemonade", "chubb",
			},
			Topics: []string{
				"insurance", "insurer", "insurers", "policyholders", "underwriting",
				"premiums", "insurtech",
			},
		},
		content.VerticalAutomotive: {
			Entities: []string{
				"tesla", "ford", "general motors", "toyota", "honda", "stellantis",
				"rivian", "volkswagen", "bmw", "hyundai",
			},
			Topics: []string{
				"automotive", "automaker", "vehicle", "vehicles", "electric vehicle",
				"ev", "dealership", "car buyers",
			},
		},
		content.VerticalTravel: {
			Entities: []string{
				"marriott", "hilton", "expedia", "airbnb", "booking.com", "delta",
				"united airlines", "american airlines", "hyatt", "southwest",
			},
			Topics: []string{
				"travel", "hotel", "hotels", "hospitality", "airline", "airlines",
				"tourism", "cruise", "vacation", "restaurant",
			},
		},
		content.VerticalEducation: {
			Entities: []string{"coursera", "chegg", "duolingo", "pearson", "khan academy"},
			Topics: []string{
				"education", "edtech", "university", "students", "school", "college",
				"enrollment",
			},
		},
		content.VerticalTelecom: {
			Entities: []string{"verizon", "at&t", "t-mobile", "comcast", "charter", "vodafone"},
			Topics: []string{
				"telecom", "wireless", "5g", "broadband", "carrier", "mobile network",
			},
		},
		content.VerticalServices: {
			Entities: []string{
				"accenture", "deloitte", "mckinsey", "pwc", "kpmg", "wpp", "omnicom",
				"publicis", "interpublic",
			},
			Topics: []string{
				"consulting", "agency", "agencies", "professional services", "b2b",
				"staffing", "outsourcing",
			},
		},
		content.VerticalPolitical: {
			Entities: []string{"dnc", "rnc", "aclu", "fec"},
			Topics: []string{
				"political", "election", "advocacy", "nonprofit", "voters", "ballot",
				"political ads", "candidate",
			},
		},
	}
}
