package utils

import "database/sql"

// ToSQLStr creates new sql str instance
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr returns string from sql.NullString
func FromSQLStr(sqlStr sql.NullString) string {
	if sqlStr.Valid {
		return sqlStr.String
	}
	return ""
}

// ToSQLFloat creates new sql float instance
func ToSQLFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// FromSQLFloat returns pointer from sql.NullFloat64
func FromSQLFloat(sqlData sql.NullFloat64) *float64 {
	if sqlData.Valid {
		res := sqlData.Float64
		return &res
	}
	return nil
}
