// Package location contiene las reglas puras de la jerarquía de ubicaciones:
// validación de campos, colocación bajo un padre, detección de ciclos y vistas de árbol.
package location

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
)

// Límites de los campos de Location.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,49}$`)

// NormalizeCode recorta y pasa a mayúsculas el código de ubicación.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateFields valida código, nombre y descripción. Devuelve un error VALIDATION con el detalle por campo.
func ValidateFields(code, name, description string) error {
	fields := map[string]string{}
	if !codePattern.MatchString(code) {
		fields["code"] = "debe tener 1-50 caracteres A-Z, 0-9, '-' o '_' y empezar por letra o dígito"
	}
	name = strings.TrimSpace(name)
	if name == "" {
		fields["name"] = "es requerido"
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		fields["name"] = fmt.Sprintf("máximo %d caracteres", MaxNameLength)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("máximo %d caracteres", MaxDescriptionLength)
	}
	if len(fields) > 0 {
		return domain.Validation("datos de ubicación inválidos", fields)
	}
	return nil
}

// ValidatePlacement verifica que level sea coherente con parent (nil = raíz).
// Raíz: level 0. Hijo: padre activo y level = padre.Level + 1, sin exceder MaxLevel.
func ValidatePlacement(level int, parent *entity.Location) error {
	if level < entity.RootLevel || level > entity.MaxLevel {
		return domain.InvalidHierarchy(fmt.Sprintf("el nivel debe estar entre %d y %d", entity.RootLevel, entity.MaxLevel))
	}
	if parent == nil {
		if level != entity.RootLevel {
			return domain.InvalidHierarchy("una ubicación raíz debe tener nivel 0")
		}
		return nil
	}
	if !parent.IsActive {
		return domain.InvalidHierarchy("la ubicación padre está inactiva")
	}
	if level != parent.Level+1 {
		return domain.InvalidHierarchy(fmt.Sprintf("el nivel debe ser %d (nivel del padre + 1)", parent.Level+1))
	}
	return nil
}

// CheckNoCycle rechaza que id se cuelgue de sí misma o de una de sus descendientes.
func CheckNoCycle(id, newParentID string, descendantIDs []string) error {
	if newParentID == id {
		return domain.InvalidHierarchy("una ubicación no puede ser su propio padre")
	}
	for _, d := range descendantIDs {
		if d == newParentID {
			return domain.InvalidHierarchy("el nuevo padre es descendiente de la ubicación (ciclo)")
		}
	}
	return nil
}

// GetAllChildrenIDs devuelve los ids de todos los descendientes de id en la lista plana (recorrido en profundidad).
func GetAllChildrenIDs(id string, flat []*entity.Location) []string {
	children := make(map[string][]string, len(flat))
	for _, l := range flat {
		if l.ParentID != nil {
			children[*l.ParentID] = append(children[*l.ParentID], l.ID)
		}
	}
	var out []string
	visited := map[string]bool{id: true}
	var walk func(string)
	walk = func(parent string) {
		for _, c := range children[parent] {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// BuildHierarchy convierte la lista plana en un bosque padre -> hijos ordenado por código.
// Una ubicación cuyo padre no está en la lista se trata como raíz de la vista.
func BuildHierarchy(flat []*entity.Location) []*entity.LocationNode {
	nodes := make(map[string]*entity.LocationNode, len(flat))
	for _, l := range flat {
		nodes[l.ID] = &entity.LocationNode{Location: *l}
	}
	var roots []*entity.LocationNode
	for _, l := range flat {
		n := nodes[l.ID]
		if l.ParentID != nil {
			if p, ok := nodes[*l.ParentID]; ok && *l.ParentID != l.ID {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*entity.LocationNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// MaxRelativeDepth devuelve la profundidad máxima (en niveles) de los descendientes de id respecto a id.
// Sirve para saber si mover un subárbol excedería MaxLevel.
func MaxRelativeDepth(id string, flat []*entity.Location) int {
	byID := make(map[string]*entity.Location, len(flat))
	for _, l := range flat {
		byID[l.ID] = l
	}
	root, ok := byID[id]
	if !ok {
		return 0
	}
	depth := 0
	for _, d := range GetAllChildrenIDs(id, flat) {
		if rel := byID[d].Level - root.Level; rel > depth {
			depth = rel
		}
	}
	return depth
}
