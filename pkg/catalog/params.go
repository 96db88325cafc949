// Package catalog registers feature group tables and their partitions in
// the metadata catalog that the query engine reads.
package catalog

import (
	"github.com/ajitpratap0/featurestore/pkg/partition"
	"github.com/ajitpratap0/featurestore/pkg/schema"
)

// Parquet table format constants.
const (
	TableTypeExternal  = "EXTERNAL_TABLE"
	ParquetInputFormat = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"
	ParquetOutput      = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat"
	ParquetSerDe       = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"
)

// PartitionKeys are the y/m/d string partition columns of every table.
var PartitionKeys = []schema.Column{
	{Name: "y", Type: schema.String},
	{Name: "m", Type: schema.String},
	{Name: "d", Type: schema.String},
}

// SerDeInfo names the row serialisation library.
type SerDeInfo struct {
	Name                 string            `json:"Name"`
	SerializationLibrary string            `json:"SerializationLibrary"`
	Parameters           map[string]string `json:"Parameters,omitempty"`
}

// StorageDescriptor describes where and how table or partition data is stored.
type StorageDescriptor struct {
	Columns      []schema.Column   `json:"Columns"`
	Location     string            `json:"Location"`
	InputFormat  string            `json:"InputFormat"`
	OutputFormat string            `json:"OutputFormat"`
	SerdeInfo    SerDeInfo         `json:"SerdeInfo"`
	Parameters   map[string]string `json:"Parameters,omitempty"`
}

// TableInput defines a table.
type TableInput struct {
	Name              string            `json:"Name"`
	TableType         string            `json:"TableType"`
	StorageDescriptor StorageDescriptor `json:"StorageDescriptor"`
	PartitionKeys     []schema.Column   `json:"PartitionKeys"`
}

// CreateTableParams is the create-table catalog mutation.
type CreateTableParams struct {
	DatabaseName string     `json:"DatabaseName"`
	TableInput   TableInput `json:"TableInput"`
}

// PartitionInput defines one partition.
type PartitionInput struct {
	Values            []string          `json:"Values"`
	StorageDescriptor StorageDescriptor `json:"StorageDescriptor"`
}

// AddPartitionsParams is the batch-add-partitions catalog mutation.
type AddPartitionsParams struct {
	DatabaseName       string           `json:"DatabaseName"`
	TableName          string           `json:"TableName"`
	PartitionInputList []PartitionInput `json:"PartitionInputList"`
}

// ParquetStorage returns a Parquet storage descriptor at location.
func ParquetStorage(cols []schema.Column, location string) StorageDescriptor {
	if cols == nil {
		cols = []schema.Column{}
	}
	return StorageDescriptor{
		Columns:      cols,
		Location:     location,
		InputFormat:  ParquetInputFormat,
		OutputFormat: ParquetOutput,
		SerdeInfo: SerDeInfo{
			Name:                 "SERDE",
			SerializationLibrary: ParquetSerDe,
			Parameters:           map[string]string{"serialization.format": "1"},
		},
		Parameters: map[string]string{"classification": "parquet", "typeOfData": "file"},
	}
}

// NewCreateTableParams builds the mutation creating a partitioned Parquet
// table whose data lives under location.
func NewCreateTableParams(db, table, location string, s schema.Schema) CreateTableParams {
	return CreateTableParams{
		DatabaseName: db,
		TableInput: TableInput{
			Name:              table,
			TableType:         TableTypeExternal,
			StorageDescriptor: ParquetStorage(s.Columns, location),
			PartitionKeys:     append([]schema.Column(nil), PartitionKeys...),
		},
	}
}

// NewAddPartitionsParams builds the mutation adding one partition per
// location. Each location must carry a partition key. Columns are recorded
// only when s is given.
func NewAddPartitionsParams(db, table string, locations []string, s *schema.Schema) (AddPartitionsParams, error) {
	var cols []schema.Column
	if s != nil {
		cols = s.Columns
	}

	params := AddPartitionsParams{
		DatabaseName:       db,
		TableName:          table,
		PartitionInputList: make([]PartitionInput, 0, len(locations)),
	}
	for _, loc := range locations {
		parsed, err := partition.Extract(loc)
		if err != nil {
			return AddPartitionsParams{}, err
		}
		params.PartitionInputList = append(params.PartitionInputList, PartitionInput{
			Values:            parsed.Key.Values(),
			StorageDescriptor: ParquetStorage(cols, parsed.PartitionRoot),
		})
	}
	return params, nil
}

// Chunks splits p into mutations of at most size partitions each.
func (p AddPartitionsParams) Chunks(size int) []AddPartitionsParams {
	if size < 1 {
		size = 1
	}
	var out []AddPartitionsParams
	for start := 0; start < len(p.PartitionInputList); start += size {
		end := start + size
		if end > len(p.PartitionInputList) {
			end = len(p.PartitionInputList)
		}
		out = append(out, AddPartitionsParams{
			DatabaseName:       p.DatabaseName,
			TableName:          p.TableName,
			PartitionInputList: p.PartitionInputList[start:end],
		})
	}
	return out
}
