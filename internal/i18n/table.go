package i18n

var table = map[Language]Strings{
	English: {
		HeaderTitle:          "Chameleon Assistant",
		InputPlaceholder:     "Type your message...",
		Greeting:             "Hello! I'm Chameleon, your assistant. Ask me anything about our services, pricing, or company.",
		ContactOfferTrigger:  "contact our support team",
		NotFound:             "I'm sorry, I couldn't find information about that in the document. Would you like to contact our support team?",
		ContactInitiate:      "I can help with that. What's your full name?",
		AskCompany:           "Thanks, {name}! What's the name of your company? (Type \"skip\" if you'd rather not say.)",
		AskEmail:             "Got it. What is your email address?",
		AskPhone:             "Great. What is your phone number? (Type \"skip\" to leave it out.)",
		InvalidEmail:         "That doesn't look like a valid email. Please enter a valid email address.",
		GenericError:         "I'm having trouble connecting right now. Please try again later.",
		ContactFlowError:     "Sorry, something went wrong while sending your details. Please try again later.",
		ContactSuccess:       "Thank you, {name}! Our team will reach out to you within 24 hours.",
		AffirmativeResponses: "yes,yeah,yep,sure,okay,please,of course,absolutely",
		ContactTriggers:      "contact support,human,agent,help,talk to someone,speak to someone",
		Skip:                 "skip",
	},
	Spanish: {
		HeaderTitle:          "Asistente Chameleon",
		InputPlaceholder:     "Escribe tu mensaje...",
		Greeting:             "¡Hola! Soy Chameleon, tu asistente. Pregúntame lo que quieras sobre nuestros servicios, precios o la empresa.",
		ContactOfferTrigger:  "contactar con nuestro equipo de soporte",
		NotFound:             "Lo siento, no pude encontrar información sobre eso en el documento. ¿Te gustaría contactar con nuestro equipo de soporte?",
		ContactInitiate:      "Puedo ayudarte con eso. ¿Cuál es tu nombre completo?",
		AskCompany:           "¡Gracias, {name}! ¿Cómo se llama tu empresa? (Escribe \"omitir\" si prefieres no decirlo.)",
		AskEmail:             "Entendido. ¿Cuál es tu correo electrónico?",
		AskPhone:             "Perfecto. ¿Cuál es tu número de teléfono? (Escribe \"omitir\" para dejarlo en blanco.)",
		InvalidEmail:         "Ese correo no parece válido. Por favor, introduce un correo electrónico válido.",
		GenericError:         "Tengo problemas de conexión en este momento. Por favor, inténtalo de nuevo más tarde.",
		ContactFlowError:     "Lo siento, algo salió mal al enviar tus datos. Por favor, inténtalo de nuevo más tarde.",
		ContactSuccess:       "¡Gracias, {name}! Nuestro equipo se pondrá en contacto contigo en las próximas 24 horas.",
		AffirmativeResponses: "sí,claro,vale,por favor,de acuerdo,por supuesto",
		ContactTriggers:      "soporte,ayuda,humano,agente,hablar con alguien",
		Skip:                 "omitir",
	},
	French: {
		HeaderTitle:          "Assistant Chameleon",
		InputPlaceholder:     "Écrivez votre message...",
		Greeting:             "Bonjour ! Je suis Chameleon, votre assistant. Posez-moi vos questions sur nos services, nos tarifs ou notre entreprise.",
		ContactOfferTrigger:  "contacter notre équipe d'assistance",
		NotFound:             "Désolé, je n'ai pas trouvé d'informations à ce sujet dans le document. Souhaitez-vous contacter notre équipe d'assistance ?",
		ContactInitiate:      "Je peux vous aider. Quel est votre nom complet ?",
		AskCompany:           "Merci, {name} ! Quel est le nom de votre entreprise ? (Tapez « passer » si vous préférez ne pas répondre.)",
		AskEmail:             "Bien noté. Quelle est votre adresse e-mail ?",
		AskPhone:             "Parfait. Quel est votre numéro de téléphone ? (Tapez « passer » pour l'ignorer.)",
		InvalidEmail:         "Cette adresse e-mail ne semble pas valide. Veuillez saisir une adresse e-mail valide.",
		GenericError:         "J'ai du mal à me connecter pour le moment. Veuillez réessayer plus tard.",
		ContactFlowError:     "Désolé, une erreur s'est produite lors de l'envoi de vos coordonnées. Veuillez réessayer plus tard.",
		ContactSuccess:       "Merci, {name} ! Notre équipe vous contactera dans les 24 heures.",
		AffirmativeResponses: "oui,d'accord,bien sûr,volontiers,s'il vous plaît",
		ContactTriggers:      "support,assistance,aide,humain,agent,parler à quelqu'un",
		Skip:                 "passer",
	},
	German: {
		HeaderTitle:          "Chameleon-Assistent",
		InputPlaceholder:     "Nachricht eingeben...",
		Greeting:             "Hallo! Ich bin Chameleon, Ihr Assistent. Fragen Sie mich alles über unsere Leistungen, Preise oder unser Unternehmen.",
		ContactOfferTrigger:  "Support-Team kontaktieren",
		NotFound:             "Es tut mir leid, ich konnte dazu keine Informationen im Dokument finden. Möchten Sie unser Support-Team kontaktieren?",
		ContactInitiate:      "Dabei kann ich helfen. Wie lautet Ihr vollständiger Name?",
		AskCompany:           "Danke, {name}! Wie heißt Ihr Unternehmen? (Geben Sie „überspringen“ ein, wenn Sie es nicht angeben möchten.)",
		AskEmail:             "Verstanden. Wie lautet Ihre E-Mail-Adresse?",
		AskPhone:             "Super. Wie lautet Ihre Telefonnummer? (Geben Sie „überspringen“ ein, um sie auszulassen.)",
		InvalidEmail:         "Das sieht nicht nach einer gültigen E-Mail-Adresse aus. Bitte geben Sie eine gültige E-Mail-Adresse ein.",
		GenericError:         "Ich habe gerade Verbindungsprobleme. Bitte versuchen Sie es später erneut.",
		ContactFlowError:     "Entschuldigung, beim Senden Ihrer Daten ist ein Fehler aufgetreten. Bitte versuchen Sie es später erneut.",
		ContactSuccess:       "Danke, {name}! Unser Team meldet sich innerhalb von 24 Stunden bei Ihnen.",
		AffirmativeResponses: "ja,gerne,klar,sicher,bitte,natürlich",
		ContactTriggers:      "support,hilfe,mensch,mitarbeiter,kontakt",
		Skip:                 "überspringen",
	},
	Italian: {
		HeaderTitle:          "Assistente Chameleon",
		InputPlaceholder:     "Scrivi il tuo messaggio...",
		Greeting:             "Ciao! Sono Chameleon, il tuo assistente. Chiedimi qualsiasi cosa sui nostri servizi, prezzi o sull'azienda.",
		ContactOfferTrigger:  "contattare il nostro team di supporto",
		NotFound:             "Mi dispiace, non ho trovato informazioni su questo nel documento. Vuoi contattare il nostro team di supporto?",
		ContactInitiate:      "Posso aiutarti. Qual è il tuo nome completo?",
		AskCompany:           "Grazie, {name}! Come si chiama la tua azienda? (Scrivi \"salta\" se preferisci non dirlo.)",
		AskEmail:             "Perfetto. Qual è il tuo indirizzo email?",
		AskPhone:             "Ottimo. Qual è il tuo numero di telefono? (Scrivi \"salta\" per ometterlo.)",
		InvalidEmail:         "Questa email non sembra valida. Inserisci un indirizzo email valido.",
		GenericError:         "Ho problemi di connessione in questo momento. Riprova più tardi.",
		ContactFlowError:     "Spiacente, si è verificato un errore durante l'invio dei tuoi dati. Riprova più tardi.",
		ContactSuccess:       "Grazie, {name}! Il nostro team ti contatterà entro 24 ore.",
		AffirmativeResponses: "sì,certo,va bene,volentieri,per favore,d'accordo",
		ContactTriggers:      "supporto,assistenza,aiuto,umano,operatore,parlare con qualcuno",
		Skip:                 "salta",
	},
}
