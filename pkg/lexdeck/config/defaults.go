package config

// Default returns the built-in vocabulary tables. The keyword lists mix
// English and Spanish terms because meanings and examples arrive in both
// languages.
func Default() *Vocab {
	v := &Vocab{
		BaseTopic: "Mixed",
		CanonicalTopics: map[string]string{
			"mixed":      "Mixed",
			"traveling":  "Traveling",
			"work":       "Work",
			"daily life": "Daily life",
			"food":       "Food",
			"shopping":   "Shopping",
			"health":     "Health",
			"social":     "Social",
			"tech":       "Tech",
			"slang":      "Slang",
		},
		TopicKeywords: map[string][]string{
			// Spellings shared by both languages repeat in their list and
			// count twice per match.
			"traveling": {
				"airport", "flight", "passport", "hotel", "trip", "travel",
				"luggage", "book a room", "visa", "boarding",
				"viaje", "aeropuerto", "hotel", "pasaporte", "vuelo",
			},
			"work": {
				"meeting", "deadline", "office", "salary", "manager",
				"interview", "coworker", "job", "work",
				"trabajo", "reunion", "oficina", "empleo",
			},
			"daily life": {
				"wake up", "breakfast", "lunch", "dinner", "today", "tomorrow",
				"home", "family", "house", "morning", "night",
				"vida diaria", "casa", "familia",
			},
			"food": {
				"eat", "drink", "restaurant", "menu", "water", "coffee",
				"breakfast", "lunch", "dinner", "food",
				"comida", "restaurante", "desayuno", "cena",
			},
			"shopping": {
				"buy", "price", "discount", "store", "mall", "receipt",
				"cart", "checkout", "shop",
				"comprar", "precio", "tienda",
			},
			"health": {
				"doctor", "pain", "medicine", "hospital", "healthy",
				"exercise", "sleep", "allergy", "sick",
				"salud", "medicina", "hospital", "doctor",
			},
			"social": {
				"friend", "party", "invite", "call", "message", "chat",
				"date", "social",
				"amigo", "fiesta", "mensaje", "llamar",
			},
			"tech": {
				"software", "hardware", "computer", "internet", "wifi",
				"code", "app", "bug", "phone", "email", "technology",
				"tecnologia", "computadora",
			},
			"slang": {
				"gonna", "wanna", "ain't", "y'all", "kinda", "sorta",
				"dude", "bro", "slang", "jerga",
			},
		},
		Particles: []string{
			"up", "down", "out", "in", "on", "off", "away", "back",
			"over", "through", "around", "about", "into", "for",
			"with", "after", "to", "from", "at", "by",
		},
		Scoring: Scoring{
			HitFloor:       3,
			HitMargin:      2,
			HeadwordWeight: 4,
			MeaningWeight:  2,
			ExampleWeight:  1,
			PhraseHit:      2,
		},
	}

	// Defaults are static; finalize can only fail on bad user input.
	if err := v.finalize(); err != nil {
		panic(err)
	}
	return v
}
