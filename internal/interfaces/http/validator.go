package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/suministros-api/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator validador compartido; los nombres de campo salen de las etiquetas json o query.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return ""
		})
	})
	return validate
}

// validateStruct valida in con sus etiquetas y devuelve un error VALIDATION con detalle por campo.
func validateStruct(in any) error {
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validation(err.Error(), nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return domain.Validation("datos inválidos", fields)
}

// fieldPath quita el nombre del struct raíz y los structs embebidos: "movements[1].item_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.TrimPrefix(ns, "PageRequest.")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es requerido"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener al menos %s caracteres", fe.Param())
		}
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener como máximo %s caracteres", fe.Param())
		}
		return fmt.Sprintf("debe ser como máximo %s", fe.Param())
	case "uuid":
		return "debe ser un UUID válido"
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "numeric":
		return "debe ser numérico"
	}
	return "es inválido"
}

// parseBody interpreta el JSON del cuerpo y lo valida.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.Validation("cuerpo inválido: "+err.Error(), nil)
	}
	return validateStruct(out)
}

// parseQuery interpreta los parámetros de consulta y los valida.
func parseQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return domain.Validation("parámetros de consulta inválidos: "+err.Error(), nil)
	}
	return validateStruct(out)
}

// pathID lee un parámetro de ruta que debe ser UUID y lo devuelve en forma canónica.
func pathID(c *fiber.Ctx, name string) (string, error) {
	return domain.CanonicalID(name, c.Params(name))
}

// queryID igual que pathID para parámetros de query; vacío devuelve "" sin error.
func queryID(c *fiber.Ctx, name string) (string, error) {
	raw := c.Query(name)
	if raw == "" {
		return "", nil
	}
	return domain.CanonicalID(name, raw)
}
