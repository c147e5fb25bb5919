package repo

import (
	"context"
)

// Everything implements §4.5 everything: reads the focal Patient, then for
// each target resource type runs a compartment membership query
// (`patientID = ANY(compartments)`), returning the focal resource plus every
// matching resource concatenated across types.
func (s *Store) Everything(ctx context.Context, patientID string, targetTypes []string) ([]map[string]interface{}, error) {
	patient, err := s.Read(ctx, "Patient", patientID)
	if err != nil {
		return nil, err
	}
	out := []map[string]interface{}{patient}

	for _, rt := range targetTypes {
		if _, ok := s.tables[rt]; !ok {
			continue
		}
		rows, err := s.conn(ctx).Query(ctx,
			`SELECT "content" FROM `+quoteIdent(rt)+` WHERE "deleted" = false AND $1 = ANY("compartments")`,
			patientID,
		)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var content string
			if err := rows.Scan(&content); err != nil {
				rows.Close()
				return nil, err
			}
			resource, err := unmarshalResource(content)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, resource)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
