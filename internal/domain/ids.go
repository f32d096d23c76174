package domain

import "github.com/google/uuid"

// CanonicalID valida que raw sea un UUID y lo devuelve en forma canónica (minúsculas, con guiones).
// Las claves de bloqueo y las comparaciones de IDs usan siempre esta forma.
func CanonicalID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", Validation("identificador inválido", map[string]string{field: "debe ser un UUID"})
	}
	return id.String(), nil
}

// CanonicalIDPtr igual que CanonicalID para referencias opcionales; nil queda nil.
func CanonicalIDPtr(field string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := CanonicalID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
