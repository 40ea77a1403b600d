package tutor

// Language is a language offered for learning.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var learningLanguages = []Language{
	{"hi", "Hindi"},
	{"bn", "Bengali"},
	{"ta", "Tamil"},
	{"te", "Telugu"},
	{"kn", "Kannada"},
	{"ml", "Malayalam"},
	{"mr", "Marathi"},
	{"gu", "Gujarati"},
	{"pa", "Punjabi"},
	{"ur", "Urdu"},
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"zh-cn", "Chinese (Simplified)"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"ar", "Arabic"},
	{"tr", "Turkish"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
}

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

var Categories = []string{"greetings", "food", "travel", "family", "numbers", "time"}

var phrases = map[string][]string{
	LevelBeginner: {
		"Hello", "Thank you", "Please", "How are you?", "My name is...",
		"Where is...?", "How much?", "I don't understand", "Help me please",
		"Goodbye", "Yes", "No", "Excuse me", "I'm sorry", "Good morning",
	},
	LevelIntermediate: {
		"What do you do for work?", "I've been learning for three months",
		"Could you speak more slowly?", "I would like to order...",
		"What's the weather like today?", "Can you recommend a good restaurant?",
		"Where are you from?", "How long have you been here?",
		"I'm interested in...", "It was nice meeting you",
	},
	LevelAdvanced: {
		"I'm considering a career change", "The cultural implications are fascinating",
		"That reminds me of something I read recently", "I'd appreciate your perspective on this matter",
		"Let's discuss the underlying issues", "That's an interesting point of view",
		"I've been contemplating this topic", "What would be the long-term consequences?",
		"There are several factors to consider", "I see both sides of the argument",
	},
}

var vocabulary = map[string][]string{
	"greetings": {"Hello", "Good morning", "Good afternoon", "Good evening", "Welcome", "Hi", "Hey", "Greetings"},
	"food":      {"Bread", "Rice", "Meat", "Fish", "Vegetable", "Fruit", "Water", "Juice", "Coffee", "Tea", "Restaurant", "Menu", "Delicious"},
	"travel":    {"Airport", "Train", "Bus", "Ticket", "Hotel", "Passport", "Luggage", "Map", "Tourist", "Vacation", "Trip", "Journey"},
	"family":    {"Mother", "Father", "Sister", "Brother", "Son", "Daughter", "Grandparent", "Cousin", "Aunt", "Uncle", "Family", "Child"},
	"numbers":   {"One", "Two", "Three", "Four", "Five", "Ten", "Twenty", "Hundred", "Thousand", "First", "Second", "Third"},
	"time":      {"Day", "Week", "Month", "Year", "Today", "Tomorrow", "Yesterday", "Morning", "Evening", "Night", "Hour", "Minute"},
}

// fillerWords supply quiz distractors for small categories.
var fillerWords = []string{"Apple", "House", "Book", "Car", "Tree", "Sun", "Moon", "Star", "Dog", "Cat"}

type line struct {
	role, text string
}

var conversations = map[string][]line{
	LevelBeginner: {
		{"A", "Hello! How are you?"},
		{"B", "I'm fine, thank you. And you?"},
		{"A", "I'm good. What's your name?"},
		{"B", "My name is Maria. Nice to meet you."},
		{"A", "Nice to meet you too, Maria."},
	},
	LevelIntermediate: {
		{"A", "Excuse me, do you know how to get to the museum?"},
		{"B", "Yes, you can take bus number 5 or walk for about 15 minutes."},
		{"A", "How often does the bus run?"},
		{"B", "Every 20 minutes. There's a bus stop just around the corner."},
		{"A", "Great, thank you for your help!"},
		{"B", "You're welcome. Enjoy your visit!"},
	},
	LevelAdvanced: {
		{"A", "I've been thinking about taking a cooking class. Have you ever tried one?"},
		{"B", "Yes, I attended a six-week course last year. It was an incredible experience."},
		{"A", "What kind of dishes did you learn to prepare?"},
		{"B", "We focused on Mediterranean cuisine, with emphasis on sustainable ingredients."},
		{"A", "That sounds fascinating. Would you recommend the same course?"},
		{"B", "Absolutely, though there are many specialized options depending on your interests."},
	},
}

var grammarRules = map[string][]string{
	"es": {
		"Spanish nouns have gender (masculine or feminine)",
		"Adjectives must match the gender and number of the noun they modify",
		"Verb conjugations change based on the subject (yo, tú, él/ella, etc.)",
		"The most common tenses for beginners are present, past (preterite), and future",
	},
	"fr": {
		"French nouns have gender (masculine or feminine)",
		"Adjectives must agree in gender and number with the nouns they modify",
		"French has formal and informal ways of addressing people (tu vs. vous)",
		"Pronunciation is key - many letters are silent at the end of words",
	},
	"de": {
		"German has three grammatical genders: masculine, feminine, and neuter",
		"German uses four cases: nominative, accusative, dative, and genitive",
		"Word order is flexible but the verb is usually in the second position in a sentence",
		"Nouns in German are always capitalized",
	},
	"ja": {
		"Japanese sentences follow Subject-Object-Verb order",
		"Particles (は, が, を, etc.) mark the grammatical function of words",
		"Verbs don't change for person or number, but they conjugate for tense and politeness",
		"Japanese doesn't use spaces between words",
	},
	"zh-cn": {
		"Chinese doesn't conjugate verbs for tense or person",
		"Word order is typically Subject-Verb-Object",
		"Measure words are used when counting objects",
		"Tones are crucial for correct pronunciation and meaning",
	},
}

var defaultGrammarRules = []string{
	"Focus on learning the most common 500-1000 words first",
	"Practice speaking from day one, even if it feels uncomfortable",
	"Listen to native speakers through music, podcasts, or videos",
	"Try to study a little bit every day rather than cramming",
}

var pronunciationTips = map[string][]string{
	"es": {
		"The letter 'h' is always silent",
		"The letter 'j' sounds like the English 'h' but stronger",
		"The letter 'ñ' is pronounced like 'ny' in 'canyon'",
		"The letter 'r' is rolled at the beginning of words",
	},
	"fr": {
		"The letter 'r' is pronounced in the back of the throat",
		"Final consonants are often silent",
		"Nasal vowels are pronounced through the nose",
		"The letter combinations 'ai' and 'ei' sound like 'eh'",
	},
	"de": {
		"The letter 'ch' has no English equivalent (like the 'ch' in 'loch')",
		"The letter 'v' is pronounced like 'f'",
		"The letter 'w' is pronounced like 'v'",
		"Umlauts (ä, ö, ü) change the sound of the vowel significantly",
	},
	"ja": {
		"Japanese has a syllabary system, not an alphabet",
		"Each character (hiragana/katakana) represents a syllable, not a single sound",
		"The 'r' sound is between the English 'r' and 'l'",
		"Pitch accent is important but subtle",
	},
	"zh-cn": {
		"Mandarin Chinese has four main tones plus a neutral tone",
		"The same syllable with different tones can have completely different meanings",
		"Some sounds like 'q', 'x', and 'zh' don't exist in English",
		"Practice with tone pairs (two tones in sequence) to improve fluency",
	},
}

var defaultPronunciationTips = []string{
	"Listen carefully to native speakers",
	"Practice mouth and tongue positions for unfamiliar sounds",
	"Record yourself speaking and compare to native audio",
	"Focus on rhythm and intonation, not just individual sounds",
}

// SampleSentences are offered for sentence pronunciation practice.
var SampleSentences = []string{
	"My name is...",
	"Where is the nearest restaurant?",
	"I would like to order coffee, please.",
	"What time does the train arrive?",
	"Can you help me find my way to the hotel?",
}

var TongueTwisters = []string{
	"She sells seashells by the seashore.",
	"Peter Piper picked a peck of pickled peppers.",
	"How much wood would a woodchuck chuck if a woodchuck could chuck wood?",
	"Red lorry, yellow lorry.",
	"Unique New York.",
}

// wordDrillSize caps the word-by-word pronunciation list.
const wordDrillSize = 10

const (
	ExerciseFill   = "fill"
	ExerciseChoice = "choice"
	ExerciseBuild  = "build"
)

// Exercise is one grammar item. Sentence holds a "___" gap for fill-in
// items, the question for multiple choice, and is empty for sentence
// building where Options are the jumbled words.
type Exercise struct {
	Sentence    string   `json:"sentence,omitempty"`
	Options     []string `json:"options"`
	Correct     string   `json:"-"`
	Explanation string   `json:"explanation,omitempty"`
}

var exercises = map[string]map[string][]Exercise{
	ExerciseFill: {
		LevelBeginner: {
			{"My name ___ John.", []string{"is", "am", "are", "be"}, "is", "Use 'is' with third-person singular (he, she, it)."},
			{"They ___ students.", []string{"is", "am", "are", "be"}, "are", "Use 'are' with plural subjects."},
		},
		LevelIntermediate: {
			{"I ___ lived here for two years.", []string{"have", "has", "am", "was"}, "have", "Use 'have' with first-person in present perfect tense."},
			{"If it ___ tomorrow, we'll stay home.", []string{"rains", "will rain", "rained", "raining"}, "rains", "In conditional sentences, use present tense in the if-clause."},
		},
		LevelAdvanced: {
			{"I wish I ___ speak five languages.", []string{"could", "can", "will", "would"}, "could", "After 'wish', use past tense or 'could' for present wishes."},
			{"By next year, they ___ the project.", []string{"will have completed", "will complete", "have completed", "complete"}, "will have completed", "Future perfect tense is used for actions that will be completed by a certain time."},
		},
	},
	ExerciseChoice: {
		LevelBeginner: {
			{"Which sentence is correct?", []string{
				"She don't like coffee.",
				"She doesn't like coffee.",
				"She not like coffee.",
				"She do not likes coffee.",
			}, "She doesn't like coffee.", "For third-person singular negative in present simple, use 'doesn't' + base verb."},
		},
		LevelIntermediate: {
			{"Which sentence uses the past perfect correctly?", []string{
				"I had finished my homework before dinner.",
				"I have finished my homework before dinner.",
				"I was finished my homework before dinner.",
				"I finished my homework before dinner had.",
			}, "I had finished my homework before dinner.", "Past perfect (had + past participle) is used for an action completed before another past action."},
		},
		LevelAdvanced: {
			{"Which sentence contains a correct conditional structure?", []string{
				"If I would have known, I would have told you.",
				"If I had known, I would told you.",
				"If I had known, I would have told you.",
				"If I would know, I would have told you.",
			}, "If I had known, I would have told you.", "In third conditional (past impossible situations), use 'if + past perfect' and 'would have + past participle'."},
		},
	},
	ExerciseBuild: {
		LevelBeginner: {
			{"", []string{"I", "to", "school", "go", "every day"}, "I go to school every day.", ""},
			{"", []string{"She", "likes", "ice cream", "chocolate"}, "She likes chocolate ice cream.", ""},
		},
		LevelIntermediate: {
			{"", []string{"Yesterday", "to", "the museum", "went", "they"}, "Yesterday they went to the museum.", ""},
			{"", []string{"have", "studying", "for", "I", "been", "hours"}, "I have been studying for hours.", ""},
		},
		LevelAdvanced: {
			{"", []string{"Had", "known", "would", "I", "earlier", "have", "arrived"}, "I would have arrived earlier had I known.", ""},
			{"", []string{"Despite", "difficulties", "the", "succeeded", "they"}, "Despite the difficulties they succeeded.", ""},
		},
	},
}

// Languages lists the learning languages in display order.
func Languages() []Language {
	return append([]Language(nil), learningLanguages...)
}

// LanguageName returns the display name for code.
func LanguageName(code string) (string, bool) {
	for _, l := range learningLanguages {
		if l.Code == code {
			return l.Name, true
		}
	}
	return "", false
}

// Phrases returns the common phrases for level; unknown levels have none.
func Phrases(level string) []string {
	return append([]string(nil), phrases[level]...)
}

func Vocabulary(category string) []string {
	return append([]string(nil), vocabulary[category]...)
}

func GrammarRules(code string) []string {
	if r, ok := grammarRules[code]; ok {
		return append([]string(nil), r...)
	}
	return append([]string(nil), defaultGrammarRules...)
}

func PronunciationTips(code string) []string {
	if t, ok := pronunciationTips[code]; ok {
		return append([]string(nil), t...)
	}
	return append([]string(nil), defaultPronunciationTips...)
}

// LearningPath returns milestones per level for the language called name.
func LearningPath(name string) map[string][]string {
	return map[string][]string{
		LevelBeginner: {
			"Learn the basic alphabet and pronunciation of " + name,
			"Master 100 essential " + name + " words",
			"Learn basic greetings and introductions",
			"Practice simple conversations",
			"Understand basic grammar concepts",
		},
		LevelIntermediate: {
			"Expand vocabulary to 500-1000 words",
			"Practice past, present, and future tenses",
			"Hold conversations on everyday topics",
			"Begin reading simple texts",
			"Practice listening comprehension with native content",
		},
		LevelAdvanced: {
			"Refine pronunciation and accent",
			"Master complex grammar structures",
			"Understand idioms and cultural references",
			"Read newspapers and watch shows without subtitles",
			"Engage in debates and complex discussions",
		},
	}
}

// Exercises returns the grammar items of kind for level. Unknown levels fall
// back to beginner; unknown kinds have none.
func Exercises(kind, level string) []Exercise {
	byLevel, ok := exercises[kind]
	if !ok {
		return nil
	}
	ex, ok := byLevel[level]
	if !ok {
		ex = byLevel[LevelBeginner]
	}
	return append([]Exercise(nil), ex...)
}
