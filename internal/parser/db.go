package parser

import (
	"database/sql"
	"fmt"

	"config-conflict-detector/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// Document types stored in cfg_host_document.doc_type.
const (
	DocHostVars = "host_vars"
	DocIntended = "intended"
)

// MariaDBSource reads host documents from the cfg_host_document table. Each
// row holds one host's YAML document body for one document type.
type MariaDBSource struct {
	db     *sql.DB
	fabric string
}

// NewMariaDBSource connects to dsn. A non-empty fabric restricts every query
// to rows with that fabric_name.
func NewMariaDBSource(dsn, fabric string) (*MariaDBSource, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &MariaDBSource{db: db, fabric: fabric}, nil
}

func (s *MariaDBSource) Close() {
	s.db.Close()
}

func (s *MariaDBSource) ReadAcls() (map[string][]model.AclRule, []*ReadError, error) {
	return queryHostDocuments(s, DocHostVars, func(body []byte) ([]model.AclRule, error) {
		return decodeKey[[]model.AclRule](body, KeyAccessLists)
	})
}

func (s *MariaDBSource) ReadInterfaces() (map[string]model.InterfaceConfig, []*ReadError, error) {
	return queryHostDocuments(s, DocIntended, decodeInterfaces)
}

func (s *MariaDBSource) ReadVlans() (map[string][]model.VlanInterface, []*ReadError, error) {
	return queryHostDocuments(s, DocIntended, func(body []byte) ([]model.VlanInterface, error) {
		return decodeKey[[]model.VlanInterface](body, KeyVlanInterfaces)
	})
}

func (s *MariaDBSource) query(docType string) (*sql.Rows, error) {
	q := "SELECT host_name, body FROM cfg_host_document WHERE doc_type = ?"
	args := []any{docType}
	if s.fabric != "" {
		q += " AND fabric_name = ?"
		args = append(args, s.fabric)
	}
	return s.db.Query(q+" ORDER BY host_name, id", args...)
}

func queryHostDocuments[T any](s *MariaDBSource, docType string, decode func([]byte) (T, error)) (map[string]T, []*ReadError, error) {
	rows, err := s.query(docType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s documents: %w", docType, err)
	}
	defer rows.Close()

	docs := make(map[string]T)
	var skipped []*ReadError
	for rows.Next() {
		var host string
		var body sql.NullString
		if err := rows.Scan(&host, &body); err != nil {
			return nil, nil, err
		}
		path := fmt.Sprintf("cfg_host_document[%s/%s]", docType, host)
		v, err := decode([]byte(body.String))
		if err != nil {
			skipped = append(skipped, &ReadError{Host: host, Path: path, Err: err})
			continue
		}
		docs[host] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return docs, skipped, nil
}
