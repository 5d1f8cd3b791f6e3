// Package schema содержит проверку схемы документов приютов на границе хранилища.
package schema

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmeshcher/shelterlink-system/internal/model"
	"github.com/mmeshcher/shelterlink-system/internal/store"
)

// ErrMalformedRecord возвращается, если документ не соответствует схеме записи приюта.
var ErrMalformedRecord = errors.New("malformed shelter record")

// DecodeShelter превращает поля документа в типизированную запись приюта.
// Документы с полями неверного типа или с отрицательным количеством коек
// отклоняются сразу, частично заполненная запись наружу не выходит.
func DecodeShelter(id string, fields store.Fields) (*model.ShelterRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrMalformedRecord)
	}

	name, err := stringField(fields, "name", true)
	if err != nil {
		return nil, err
	}

	address, err := stringField(fields, "address", false)
	if err != nil {
		return nil, err
	}

	description, err := stringField(fields, "description", false)
	if err != nil {
		return nil, err
	}

	image, err := stringField(fields, "image", false)
	if err != nil {
		return nil, err
	}

	beds, err := intField(fields, "bedsAvailable")
	if err != nil {
		return nil, err
	}
	if beds < 0 {
		return nil, fmt.Errorf("%w: bedsAvailable is negative", ErrMalformedRecord)
	}

	isOpen, err := boolField(fields, "isOpen")
	if err != nil {
		return nil, err
	}

	latitude, err := floatField(fields, "latitude")
	if err != nil {
		return nil, err
	}

	longitude, err := floatField(fields, "longitude")
	if err != nil {
		return nil, err
	}

	services, err := stringSliceField(fields, "services")
	if err != nil {
		return nil, err
	}

	return &model.ShelterRecord{
		ID:            id,
		Name:          name,
		Address:       address,
		Latitude:      latitude,
		Longitude:     longitude,
		BedsAvailable: beds,
		IsOpen:        isOpen,
		Description:   description,
		Services:      services,
		Image:         image,
	}, nil
}

func stringField(fields store.Fields, key string, required bool) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
		}
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformedRecord, key)
	}

	if required && s == "" {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
	}

	return s, nil
}

// intField принимает целые значения. Числа из JSON приходят как float64,
// поэтому дробная часть проверяется отдельно.
func intField(fields store.Fields, key string) (int, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
	}

	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: field %q is not an integer", ErrMalformedRecord, key)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: field %q is not a number", ErrMalformedRecord, key)
	}
}

func floatField(fields store.Fields, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, nil
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: field %q is not a number", ErrMalformedRecord, key)
	}
}

func boolField(fields store.Fields, key string) (bool, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return false, nil
	}

	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: field %q is not a boolean", ErrMalformedRecord, key)
	}

	return b, nil
}

func stringSliceField(fields store.Fields, key string) ([]string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch items := v.(type) {
	case []string:
		return items, nil
	case []any:
		res := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %q contains a non-string element", ErrMalformedRecord, key)
			}
			res = append(res, s)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: field %q is not a list of strings", ErrMalformedRecord, key)
	}
}
