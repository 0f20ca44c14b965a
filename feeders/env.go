package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

var durationType = reflect.TypeOf(time.Duration(0))

// EnvFeeder is a feeder that reads environment variables named
// PREFIX_<env tag> into the fields carrying an `env` tag. Nested structs are
// walked with the same prefix. Unset or empty variables leave fields as they
// are.
type EnvFeeder struct {
	Prefix string

	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// NewEnvFeeder creates a new EnvFeeder with the specified prefix
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed reads environment variables and populates the provided structure
func (f EnvFeeder) Feed(structure any) error {
	if f.Prefix == "" {
		return ErrEnvEmptyPrefix
	}

	inputType := reflect.TypeOf(structure)
	if inputType == nil || inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}

	lookup := f.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return processStructFields(reflect.ValueOf(structure).Elem(), strings.ToUpper(f.Prefix), lookup)
}

// processStructFields iterates through struct fields
func processStructFields(rv reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if err := processField(field, &fieldType, prefix, lookup); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func processField(field reflect.Value, fieldType *reflect.StructField, prefix string, lookup func(string) (string, bool)) error {
	switch field.Kind() {
	case reflect.Struct:
		return processStructFields(field, prefix, lookup)
	case reflect.Pointer:
		if !field.IsZero() && field.Elem().Kind() == reflect.Struct {
			return processStructFields(field.Elem(), prefix, lookup)
		}
	}

	envTag, exists := fieldType.Tag.Lookup("env")
	if !exists {
		return nil
	}

	envName := prefix + "_" + strings.ToUpper(envTag)
	if envValue, ok := lookup(envName); ok && envValue != "" {
		return setFieldValue(field, envValue)
	}
	return nil
}

// setFieldValue converts and sets a field value. Durations use Go duration
// syntax and slices are comma separated.
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrFieldCannotBeSet
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
		}
		field.SetInt(int64(d))
		return nil
	case field.Kind() == reflect.Slice:
		parts := strings.Split(strValue, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			elem := reflect.New(field.Type().Elem()).Elem()
			if err := setFieldValue(elem, part); err != nil {
				return err
			}
			out = reflect.Append(out, elem)
		}
		field.Set(out)
		return nil
	}

	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}

	field.Set(reflect.ValueOf(convertedValue).Convert(field.Type()))
	return nil
}
