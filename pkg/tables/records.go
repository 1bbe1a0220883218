package tables

import "fmt"

// NewRecordDataValidation validates {"id": string, "fields": ...}, delegating
// the field set to a fresh context of fieldsValidator keyed by the record id.
func NewRecordDataValidation[F any](fieldsValidator Validator[F], reference string) ValidationContext[RecordData[F]] {
	description := "record data"
	if reference != "" {
		description = fmt.Sprintf("record data %s", reference)
	}

	return NewValidation(description, func(checker *Checker, input any) (RecordData[F], bool) {
		var data RecordData[F]

		object, ok := checker.Object(input)
		if !ok {
			return data, false
		}

		id, ok := object["id"].(string)
		if !ok {
			checker.Failf("expected record data to have a string property \"id\", found %s", describeProperty(object, "id"))
		} else {
			data.ID = id
		}

		rawFields, ok := object["fields"]
		if !ok {
			checker.Failf("expected record %q to have a \"fields\" property", id)

			return data, false
		}

		fields, ok := CheckNested(checker, fieldsValidator.CreateValidation(id), rawFields)
		if !ok {
			return data, false
		}

		data.Fields = fields

		return data, !checker.Failed()
	})
}

// RecordDataValidator is the Validator form of NewRecordDataValidation.
func RecordDataValidator[F any](fieldsValidator Validator[F]) Validator[RecordData[F]] {
	return ValidatorFunc[RecordData[F]](func(reference string) ValidationContext[RecordData[F]] {
		return NewRecordDataValidation(fieldsValidator, reference)
	})
}

// NewMultiRecordValidation validates {"records": [...]} and checks every entry
// with a fresh context of itemValidator. All entries are checked so that every
// failing entry is reported.
func NewMultiRecordValidation[T any](itemValidator Validator[T]) ValidationContext[[]T] {
	return NewValidation("multi-record response", func(checker *Checker, input any) ([]T, bool) {
		object, ok := checker.Object(input)
		if !ok {
			return nil, false
		}

		return checkRecordList(checker, itemValidator, object)
	})
}

func checkRecordList[T any](checker *Checker, itemValidator Validator[T], object map[string]any) ([]T, bool) {
	rawRecords, ok := object["records"]
	if !ok {
		checker.Failf("expected object to have property \"records\"")

		return nil, false
	}

	entries, ok := rawRecords.([]any)
	if !ok {
		checker.Failf("expected property \"records\" to be an array, found %s", KindOf(rawRecords))

		return nil, false
	}

	items := make([]T, 0, len(entries))
	valid := true

	for index, entry := range entries {
		item, ok := CheckNested(checker, itemValidator.CreateValidation(fmt.Sprintf("records[%d]", index)), entry)
		if !ok {
			valid = false

			continue
		}

		items = append(items, item)
	}

	return items, valid
}

// NewPageValidation validates one page of a list response. A page without a
// "records" key or with an empty records array is valid; an "offset", when
// present, must be a string.
func NewPageValidation[F any](fieldsValidator Validator[F]) ValidationContext[Page[F]] {
	return NewValidation("page results", func(checker *Checker, input any) (Page[F], bool) {
		var page Page[F]

		object, ok := checker.Object(input)
		if !ok {
			return page, false
		}

		if _, hasRecords := object["records"]; hasRecords {
			records, ok := CheckNested(checker, NewMultiRecordValidation(RecordDataValidator(fieldsValidator)), input)
			if ok {
				page.Records = records
			}
		}

		if rawOffset, hasOffset := object["offset"]; hasOffset {
			offset, ok := rawOffset.(string)
			if !ok {
				checker.Failf("expected offset to be a string, found %s", KindOf(rawOffset))
			} else {
				page.Offset = offset
			}
		}

		return page, !checker.Failed()
	})
}

// NewDeletedRecordValidation validates {"id": string, "deleted": true}.
func NewDeletedRecordValidation(reference string) ValidationContext[DeletedRecord] {
	description := "deleted record"
	if reference != "" {
		description = fmt.Sprintf("deleted record %s", reference)
	}

	return NewValidation(description, func(checker *Checker, input any) (DeletedRecord, bool) {
		var deleted DeletedRecord

		object, ok := checker.Object(input)
		if !ok {
			return deleted, false
		}

		id, ok := object["id"].(string)
		if !ok {
			checker.Failf("expected object to have a string property \"id\", found %s", describeProperty(object, "id"))
		}

		flag, ok := object["deleted"].(bool)
		if !ok || !flag {
			checker.Failf("expected object to have property \"deleted\" set to true, found %s", describeProperty(object, "deleted"))
		}

		deleted.ID = id
		deleted.Deleted = flag

		return deleted, !checker.Failed()
	})
}

// DeletedRecordValidator is the Validator form of NewDeletedRecordValidation.
var DeletedRecordValidator Validator[DeletedRecord] = ValidatorFunc[DeletedRecord](NewDeletedRecordValidation)

// NewTrustingValidation accepts any field set. It is used for tables without a
// validator: the store is trusted and no shape checks are made. Its error
// accessor reports an internal-consistency error if called after a success.
func NewTrustingValidation[F any]() ValidationContext[F] {
	return &trustingValidation[F]{}
}

type trustingValidation[F any] struct {
	err error
}

func (v *trustingValidation[F]) IsValid(input any) (F, bool) {
	fields, err := convertFields[F](input)
	if err != nil {
		v.err = err

		return fields, false
	}

	return fields, true
}

func (v *trustingValidation[F]) ValidationError() error {
	if v.err != nil {
		return &ValidationError{Description: "fields", Causes: []error{v.err}}
	}

	return ErrNoValidationPerformed
}

func describeProperty(object map[string]any, key string) string {
	value, ok := object[key]
	if !ok {
		return "nothing"
	}

	if flag, isBool := value.(bool); isBool {
		return fmt.Sprintf("%t", flag)
	}

	return KindOf(value)
}
