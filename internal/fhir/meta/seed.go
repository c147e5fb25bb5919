package meta

// RegisterBaseProfiles seeds the profile registry with the resource types
// the engine ships search/schema support for out of the box. A real
// deployment loads the full R4 StructureDefinition bundle through the same
// Register call; this seed only needs to be enough of a snapshot to drive
// schema synthesis end to end without shipping a full profile parser, which
// is an external collaborator's concern.
func RegisterBaseProfiles(r *ProfileRegistry) {
	resource := func(name string, elements ...ElementDefinition) {
		r.Register(&Profile{
			URL:      "http://hl7.org/fhir/StructureDefinition/" + name,
			Name:     name,
			Type:     "resource",
			Kind:     "resource",
			Elements: elements,
		})
	}

	resource("Patient",
		ElementDefinition{Path: "Patient.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Patient.name", Max: "*", Types: []string{"HumanName"}},
		ElementDefinition{Path: "Patient.telecom", Max: "*", Types: []string{"ContactPoint"}},
		ElementDefinition{Path: "Patient.gender", Max: "1", Types: []string{"code"}},
		ElementDefinition{Path: "Patient.birthDate", Max: "1", Types: []string{"date"}},
		ElementDefinition{Path: "Patient.address", Max: "*", Types: []string{"Address"}},
		ElementDefinition{Path: "Patient.active", Max: "1", Types: []string{"boolean"}},
		ElementDefinition{Path: "Patient.generalPractitioner", Max: "*", Types: []string{"Reference"}},
	)
	resource("Practitioner",
		ElementDefinition{Path: "Practitioner.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Practitioner.name", Max: "*", Types: []string{"HumanName"}},
	)
	resource("Organization",
		ElementDefinition{Path: "Organization.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Organization.name", Max: "1", Types: []string{"string"}},
	)
	resource("Encounter",
		ElementDefinition{Path: "Encounter.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Encounter.status", Max: "1", Types: []string{"code"}},
		ElementDefinition{Path: "Encounter.subject", Max: "1", Types: []string{"Reference"}},
		ElementDefinition{Path: "Encounter.period", Max: "1", Types: []string{"Period"}},
	)
	resource("Condition",
		ElementDefinition{Path: "Condition.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Condition.clinicalStatus", Max: "1", Types: []string{"CodeableConcept"}},
		ElementDefinition{Path: "Condition.code", Max: "1", Types: []string{"CodeableConcept"}},
		ElementDefinition{Path: "Condition.subject", Max: "1", Types: []string{"Reference"}},
		ElementDefinition{Path: "Condition.onsetDateTime", Max: "1", Types: []string{"dateTime"}},
	)
	resource("Observation",
		ElementDefinition{Path: "Observation.identifier", Max: "*", Types: []string{"Identifier"}},
		ElementDefinition{Path: "Observation.status", Max: "1", Types: []string{"code"}},
		ElementDefinition{Path: "Observation.category", Max: "*", Types: []string{"CodeableConcept"}},
		ElementDefinition{Path: "Observation.code", Max: "1", Types: []string{"CodeableConcept"}},
		ElementDefinition{Path: "Observation.subject", Max: "1", Types: []string{"Reference"}},
		ElementDefinition{Path: "Observation.effectiveDateTime", Max: "1", Types: []string{"dateTime"}},
		ElementDefinition{Path: "Observation.valueQuantity", Max: "1", Types: []string{"Quantity"}},
	)
}

// RegisterBaseSearchParameters seeds the search parameter registry with the
// FHIR R4 base parameters for the resource types in RegisterBaseProfiles,
// plus the cross-cutting ones every resource type shares (_id, _lastUpdated,
// _tag, _security, _profile).
func RegisterBaseSearchParameters(r *SearchParameterRegistry) {
	common := []SearchParameterDef{
		{Code: "_id", Base: allBaseTypes, Type: "token", Expression: "id"},
		{Code: "_lastUpdated", Base: allBaseTypes, Type: "date", Expression: "meta.lastUpdated"},
		{Code: "_tag", Base: allBaseTypes, Type: "token", Expression: "meta.tag"},
		{Code: "_security", Base: allBaseTypes, Type: "token", Expression: "meta.security"},
		{Code: "_profile", Base: allBaseTypes, Type: "uri", Expression: "meta.profile"},
		{Code: "identifier", Base: []string{"Patient", "Practitioner", "Organization", "Encounter", "Condition", "Observation"}, Type: "token", Expression: "identifier"},
	}
	r.Index(common)

	r.Index([]SearchParameterDef{
		{Code: "name", Base: []string{"Patient", "Practitioner"}, Type: "string", Expression: "name"},
		{Code: "family", Base: []string{"Patient", "Practitioner"}, Type: "string", Expression: "name.family"},
		{Code: "given", Base: []string{"Patient", "Practitioner"}, Type: "string", Expression: "name.given"},
		{Code: "birthdate", Base: []string{"Patient"}, Type: "date", Expression: "birthDate"},
		{Code: "gender", Base: []string{"Patient"}, Type: "token", Expression: "gender"},
		{Code: "address", Base: []string{"Patient"}, Type: "string", Expression: "address"},
		{Code: "telecom", Base: []string{"Patient"}, Type: "token", Expression: "telecom"},
		{Code: "general-practitioner", Base: []string{"Patient"}, Type: "reference", Expression: "generalPractitioner", Target: []string{"Practitioner"}},

		{Code: "name", Base: []string{"Organization"}, Type: "string", Expression: "name"},

		{Code: "status", Base: []string{"Encounter", "Condition", "Observation"}, Type: "token", Expression: "status"},
		{Code: "subject", Base: []string{"Encounter", "Condition", "Observation"}, Type: "reference", Expression: "subject", Target: []string{"Patient"}},
		{Code: "patient", Base: []string{"Encounter", "Condition", "Observation"}, Type: "reference", Expression: "subject", Target: []string{"Patient"}},
		{Code: "date", Base: []string{"Encounter"}, Type: "date", Expression: "period"},

		{Code: "code", Base: []string{"Condition", "Observation"}, Type: "token", Expression: "code"},
		{Code: "clinical-status", Base: []string{"Condition"}, Type: "token", Expression: "clinicalStatus"},
		{Code: "onset-date", Base: []string{"Condition"}, Type: "date", Expression: "onsetDateTime"},

		{Code: "category", Base: []string{"Observation"}, Type: "token", Expression: "category"},
		{Code: "value-quantity", Base: []string{"Observation"}, Type: "quantity", Expression: "valueQuantity"},
		{Code: "date", Base: []string{"Observation"}, Type: "date", Expression: "effectiveDateTime"},

		{Code: "code-value-quantity", Base: []string{"Observation"}, Type: "composite", Expression: "code$valueQuantity",
			Component: []CompositeComponentDef{{DefinitionCode: "code", Expression: "code"}, {DefinitionCode: "value-quantity", Expression: "valueQuantity"}}},
	})
}

var allBaseTypes = []string{"Patient", "Practitioner", "Organization", "Encounter", "Condition", "Observation"}
