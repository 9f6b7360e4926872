package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/taxonomy"
)

// DefaultSystemPrompt frames the model as a Dutch administrative law expert.
const DefaultSystemPrompt = "Je bent een expert in Nederlands bestuursrecht en juridische publicaties. " +
	"Analyseer publicaties nauwkeurig en geef gestructureerde informatie terug."

const extendedSystemSuffix = " Vul voor alle gevraagde velden complete informatie in."

// SystemPrompt returns the system prompt for profile, or custom when set.
func SystemPrompt(profile model.Profile, custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	if profile.Extended() {
		return DefaultSystemPrompt + extendedSystemSuffix
	}
	return DefaultSystemPrompt
}

type instruction struct {
	field model.Field
	text  string
	// example is the literal JSON value shown in the output contract.
	example string
}

func instructions(tax taxonomy.Taxonomy) []instruction {
	themes := strings.Join(tax.Themes, ", ")
	types := strings.Join(tax.Types, ", ")
	return []instruction{
		{model.FieldTheme, "THEMA: Kies het meest passende thema uit deze lijst: " + themes, `"gekozen thema"`},
		{model.FieldAuthor, "AUTEUR: Identificeer de hoofdauteur (één naam of organisatie)", `"hoofdauteur naam"`},
		{model.FieldSummary, "SAMENVATTING: Schrijf een samenvatting van 5-7 zinnen die de kerninhoud weergeeft", `"samenvatting"`},
		{model.FieldType, "TYPE: Bevestig of corrigeer het type uit deze lijst: " + types, `"gekozen type"`},
		{model.FieldKeywords, "KEYWORDS: 3-8 kernwoorden voor filtering (komma-gescheiden)", `"kernwoord1, kernwoord2, kernwoord3"`},
		{model.FieldAudience, `AUDIENCE: Doelgroep (bv. "Beleidsmedewerkers", "Juridisch adviseurs", "Gemeenten")`, `"doelgroep"`},
		{model.FieldImpact, "IMPACT: Korte inschatting van de impact op beleid", `"korte impact inschatting"`},
		{model.FieldReadTime, `READ_TIME: Geschatte leestijd (bv. "5 min")`, `"X min"`},
		{model.FieldTakeaways, "TAKEAWAYS: 3-5 belangrijkste punten", `["punt 1", "punt 2", "punt 3"]`},
		{model.FieldOneLiner, "SUMMARY_ONE_LINER: Samenvatting in één zin", `"één zin"`},
		{model.FieldEmbargoStatus, `EMBARGO_STATUS: "Embargo tot [datum]" of "` + model.DefaultEmbargoStatus + `"`, `"` + model.DefaultEmbargoStatus + `"`},
		{model.FieldSubtype, `SUBTYPE: Specifieker dan type (bv. "Modelverordening", "Raadsvoorstel", "Nieuwsbericht")`, `"specifieke categorie"`},
		{model.FieldLanguageLevel, `LANGUAGE_LEVEL: "Beleidsmatig", "Juridisch technisch" of "Toegankelijk voor leken"`, `"taalniveau"`},
		{model.FieldValidity, `EXPIRY_OR_VALIDITY: Tijdgevoeligheid (bv. "Geldig tot [datum]" of "Structureel toepasbaar")`, `"tijdgevoeligheid"`},
		{model.FieldRelevanceScore, "RELEVANCE_SCORE: Relevantie voor beleid als geheel getal van 1 tot 10", `8`},
	}
}

// ContractFields returns the JSON keys the model must return for profile.
func ContractFields(profile model.Profile) []model.Field {
	if profile.Extended() {
		return model.EnrichmentFields
	}
	return model.EnrichmentFields[:4]
}

// BuildPrompt renders the user prompt: record identity, page excerpt, the
// closed vocabularies and the JSON output contract.
func BuildPrompt(pub model.Publication, excerpt string, tax taxonomy.Taxonomy, profile model.Profile) string {
	var sb strings.Builder

	if profile.Extended() {
		sb.WriteString("Analyseer de volgende Nederlandse juridische/bestuurlijke publicatie uitgebreid en vul alle ontbrekende gegevens in op basis van de webpagina-inhoud.\n\n")
	} else {
		sb.WriteString("Analyseer de volgende publicatie en vul de ontbrekende gegevens in op basis van de webpagina-inhoud.\n\n")
	}

	sb.WriteString("PUBLICATIE INFORMATIE:\n")
	fmt.Fprintf(&sb, "Titel: %s\nURL: %s\nHuidige datum: %s\nBron: %s\nHuidig type: %s\n\n",
		pub.Title, pub.URL, pub.Date, pub.Source, pub.Type)

	sb.WriteString("WEBPAGINA INHOUD:\n")
	sb.WriteString(excerpt)
	sb.WriteString("\n\nINSTRUCTIES:\n")

	wanted := make(map[model.Field]bool)
	for _, f := range ContractFields(profile) {
		wanted[f] = true
	}
	var contract []string
	n := 0
	for _, in := range instructions(tax) {
		if !wanted[in.field] {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. %s\n", n, in.text)
		contract = append(contract, fmt.Sprintf("  %q: %s", in.field, in.example))
	}

	sb.WriteString("\nGeef je antwoord als één JSON-object in exact dit formaat:\n{\n")
	sb.WriteString(strings.Join(contract, ",\n"))
	sb.WriteString("\n}\n\nLet op:\n")
	sb.WriteString("- Gebruik alleen thema's en types uit de gegeven lijsten\n")
	sb.WriteString("- Geef slechts één hoofdauteur\n")
	if profile.Extended() {
		sb.WriteString("- Takeaways als array van strings\n")
		sb.WriteString("- Relevance_score als getal van 1 tot 10\n")
		sb.WriteString("- Embargo_status: zoek naar embargo-informatie in de tekst, anders \"" + model.DefaultEmbargoStatus + "\"\n")
	}
	sb.WriteString("- Antwoord alleen met geldige JSON\n")
	return sb.String()
}
