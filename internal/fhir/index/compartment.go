package index

// patientCompartmentParams names, per resource type, the reference
// search-parameter codes whose targets place a resource in the Patient
// compartment. Grounded on the base FHIR R4 CompartmentDefinition for
// Patient; Binary carries no `compartments` column at all
// (schema.fixedMainColumns).
var patientCompartmentParams = map[string][]string{
	"AllergyIntolerance":       {"patient"},
	"Appointment":              {"patient"},
	"CarePlan":                 {"patient"},
	"CareTeam":                 {"patient"},
	"Claim":                    {"patient"},
	"Communication":            {"patient"},
	"Composition":              {"patient"},
	"Condition":                {"patient", "subject"},
	"Consent":                  {"patient"},
	"Coverage":                 {"patient"},
	"DiagnosticReport":         {"patient", "subject"},
	"DocumentReference":        {"patient", "subject"},
	"Encounter":                {"patient", "subject"},
	"ImagingStudy":             {"patient", "subject"},
	"MedicationAdministration": {"patient", "subject"},
	"MedicationDispense":       {"patient"},
	"MedicationRequest":        {"patient", "subject"},
	"MedicationStatement":      {"patient", "subject"},
	"Observation":              {"patient", "subject"},
	"Procedure":                {"patient", "subject"},
	"QuestionnaireResponse":    {"patient", "subject"},
	"ServiceRequest":           {"patient", "subject"},
	"Specimen":                 {"patient", "subject"},
}

// ExtractCompartments returns the distinct target ids (already-extracted
// References rows) that place resourceType in the Patient compartment. A
// Patient resource is always a member of its own compartment.
func ExtractCompartments(resourceType, resourceID string, refs []ReferenceRow) []string {
	if resourceType == "Patient" {
		return []string{resourceID}
	}
	codes := patientCompartmentParams[resourceType]
	if len(codes) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range refs {
		if !wanted[r.Code] || seen[r.TargetID] {
			continue
		}
		seen[r.TargetID] = true
		out = append(out, r.TargetID)
	}
	return out
}
