package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a struct's exported fields.
func StructTagValues(input any, omit ...string) []string {
	targetValue := structValue(input)
	targetType := targetValue.Type()

	result := make([]string, 0, targetValue.NumField())

	for i := 0; i < targetValue.NumField(); i++ {
		column, ok := columnName(targetType.Field(i))
		if !ok || contains(omit, column) {
			continue
		}
		result = append(result, column)
	}

	return result
}

// StructToMap maps column names to field values, ready for squirrel's SetMap.
func StructToMap(input any, omit ...string) map[string]any {
	itemValue := structValue(input)
	itemType := itemValue.Type()

	result := make(map[string]any, itemValue.NumField())

	for i := 0; i < itemValue.NumField(); i++ {
		column, ok := columnName(itemType.Field(i))
		if !ok || contains(omit, column) {
			continue
		}
		result[column] = itemValue.Field(i).Interface()
	}

	return result
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func columnName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}

	tag := field.Tag.Get(ColumnTag)
	if tag == "" || tag == "-" {
		return "", false
	}

	return tag, true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
