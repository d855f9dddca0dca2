package services

// Phrasebook holds the predefined emergency phrases shipped with the app.
// Source phrases are French (the responders' working language); each maps to
// its translations by target language code. Phrasebook hits are stored in
// the cache as priority entries so they survive long gaps between incidents.
type Phrasebook struct {
	phrases map[string]map[string]string
}

// NewPhrasebook returns the built-in emergency phrasebook.
func NewPhrasebook() *Phrasebook {
	return &Phrasebook{phrases: emergencyPhrases}
}

// Lookup returns the predefined translation of text into targetLang, if any.
func (p *Phrasebook) Lookup(text, targetLang string) (string, bool) {
	byLang, ok := p.phrases[text]
	if !ok {
		return "", false
	}
	translated, ok := byLang[targetLang]
	return translated, ok
}

// SourcePhrases returns every French source phrase, for offline pre-warming.
func (p *Phrasebook) SourcePhrases() []string {
	out := make([]string, 0, len(p.phrases))
	for phrase := range p.phrases {
		out = append(out, phrase)
	}
	return out
}

// HasLanguage reports whether the phrasebook carries translations for code.
func (p *Phrasebook) HasLanguage(code string) bool {
	for _, byLang := range p.phrases {
		if _, ok := byLang[code]; ok {
			return true
		}
	}
	return false
}

// emergencyPhrases is the built-in corpus. Keys are the exact French phrases
// the UI offers as quick actions; lookups are case-sensitive on purpose.
var emergencyPhrases = map[string]map[string]string{
	"Où avez-vous mal ?": {
		"en": "Where does it hurt?",
		"es": "¿Dónde le duele?",
		"de": "Wo haben Sie Schmerzen?",
		"it": "Dove Le fa male?",
		"ar": "أين تشعر بالألم؟",
	},
	"Restez calme, les secours arrivent": {
		"en": "Stay calm, help is on the way",
		"es": "Mantenga la calma, la ayuda está en camino",
		"de": "Bleiben Sie ruhig, Hilfe ist unterwegs",
		"it": "Stia calmo, i soccorsi stanno arrivando",
		"ar": "ابق هادئا، المساعدة في الطريق",
	},
	"Pouvez-vous respirer normalement ?": {
		"en": "Can you breathe normally?",
		"es": "¿Puede respirar con normalidad?",
		"de": "Können Sie normal atmen?",
		"it": "Riesce a respirare normalmente?",
		"ar": "هل تستطيع التنفس بشكل طبيعي؟",
	},
	"Êtes-vous blessé ?": {
		"en": "Are you injured?",
		"es": "¿Está herido?",
		"de": "Sind Sie verletzt?",
		"it": "È ferito?",
		"ar": "هل أنت مصاب؟",
	},
	"Avez-vous des allergies ?": {
		"en": "Do you have any allergies?",
		"es": "¿Tiene alguna alergia?",
		"de": "Haben Sie Allergien?",
		"it": "Ha delle allergie?",
		"ar": "هل لديك أي حساسية؟",
	},
	"Prenez-vous des médicaments ?": {
		"en": "Are you taking any medication?",
		"es": "¿Toma algún medicamento?",
		"de": "Nehmen Sie Medikamente?",
		"it": "Sta prendendo dei farmaci?",
		"ar": "هل تتناول أي أدوية؟",
	},
	"Ne bougez pas": {
		"en": "Do not move",
		"es": "No se mueva",
		"de": "Bewegen Sie sich nicht",
		"it": "Non si muova",
		"ar": "لا تتحرك",
	},
	"Nous allons vous aider": {
		"en": "We are going to help you",
		"es": "Vamos a ayudarle",
		"de": "Wir werden Ihnen helfen",
		"it": "La aiuteremo",
		"ar": "سوف نساعدك",
	},
	"Y a-t-il d'autres personnes à l'intérieur ?": {
		"en": "Is anyone else inside?",
		"es": "¿Hay alguien más dentro?",
		"de": "Ist noch jemand drinnen?",
		"it": "C'è qualcun altro all'interno?",
		"ar": "هل يوجد أشخاص آخرون في الداخل؟",
	},
	"Comment vous appelez-vous ?": {
		"en": "What is your name?",
		"es": "¿Cómo se llama?",
		"de": "Wie heißen Sie?",
		"it": "Come si chiama?",
		"ar": "ما اسمك؟",
	},
	"Quel âge avez-vous ?": {
		"en": "How old are you?",
		"es": "¿Cuántos años tiene?",
		"de": "Wie alt sind Sie?",
		"it": "Quanti anni ha?",
		"ar": "كم عمرك؟",
	},
	"Suivez-moi s'il vous plaît": {
		"en": "Please follow me",
		"es": "Sígame, por favor",
		"de": "Folgen Sie mir bitte",
		"it": "Mi segua, per favore",
		"ar": "اتبعني من فضلك",
	},
	"L'ambulance arrive": {
		"en": "The ambulance is coming",
		"es": "La ambulancia está llegando",
		"de": "Der Krankenwagen kommt",
		"it": "L'ambulanza sta arrivando",
		"ar": "سيارة الإسعاف قادمة",
	},
	"Montrez-moi où": {
		"en": "Show me where",
		"es": "Muéstreme dónde",
		"de": "Zeigen Sie mir wo",
		"it": "Mi mostri dove",
		"ar": "أرني أين",
	},
	"Tout va bien se passer": {
		"en": "Everything is going to be fine",
		"es": "Todo va a salir bien",
		"de": "Alles wird gut",
		"it": "Andrà tutto bene",
		"ar": "كل شيء سيكون على ما يرام",
	},
}

// commonPhrases are everyday phrases pre-translated when a language is
// downloaded for offline use, on top of the emergency set.
var commonPhrases = []string{
	"Oui",
	"Non",
	"Merci",
	"S'il vous plaît",
	"Je ne comprends pas",
	"Parlez plus lentement",
	"Attendez ici",
	"C'est urgent",
}
