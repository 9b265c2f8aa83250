package parser

import "strings"

// The source checklists are Swiss food-safety audits, so the keyword lists
// carry the French domain vocabulary alongside the English labels.

var sectionCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"contrat", "licence", "document"}, "Documentation"},
	{[]string{"achat", "réception", "matières premières"}, "Procurement"},
	{[]string{"emballage", "déclaration"}, "Packaging"},
	{[]string{"recette", "transformation", "production"}, "Production"},
	{[]string{"parasite", "hygiène", "nettoyage"}, "Hygiene"},
	{[]string{"importation", "transport"}, "Import"},
	{[]string{"contrôle", "flux"}, "Quality Control"},
	{[]string{"annonce", "obligation"}, "Compliance"},
}

var textCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"document", "formulaire", "registre"}, "Documentation"},
	{[]string{"formation", "personnel", "collaborateur"}, "Personnel"},
	{[]string{"production", "fabrication"}, "Production"},
	{[]string{"hygiène", "nettoyage", "désinfection"}, "Hygiene"},
	{[]string{"stockage", "entreposage"}, "Storage"},
	{[]string{"traçabilité", "étiquetage"}, "Traceability"},
}

// detectCategoryFromSection classifies an item by its section title.
func detectCategoryFromSection(sectionTitle string) string {
	lower := strings.ToLower(sectionTitle)
	for _, c := range sectionCategories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return "General"
}

// detectCategory classifies an item by its requirement text.
func detectCategory(text string) string {
	lower := strings.ToLower(text)
	for _, c := range textCategories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return "General"
}
