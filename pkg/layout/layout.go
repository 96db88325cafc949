// Package layout names every object the feature store reads or writes:
// production schema descriptors and partitions, their staging twins,
// catalog tables and query result folders.
package layout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	stringutil "github.com/ajitpratap0/featurestore/pkg/strings"
)

const (
	schemaFolder  = "schema"
	dataFolder    = "data"
	uploadsFolder = "uploads"
	queryFolder   = "queries"

	// SchemaFile is the name of the schema descriptor object.
	SchemaFile = "schema.json"
)

// FeatureGroup identifies a versioned dataset.
type FeatureGroup struct {
	Client  string `json:"client"`
	App     string `json:"app"`
	Entity  string `json:"entity"`
	Version string `json:"version"`
}

// String renders the identity as client/app/entity/version.
func (fg FeatureGroup) String() string {
	return strings.Join([]string{fg.Client, fg.App, fg.Entity, fg.Version}, "/")
}

// Validate rejects identities with empty or path-breaking parts.
func (fg FeatureGroup) Validate() error {
	parts := map[string]string{"client": fg.Client, "app": fg.App, "entity": fg.Entity, "version": fg.Version}
	for _, name := range []string{"client", "app", "entity", "version"} {
		v := parts[name]
		if strings.TrimSpace(v) == "" || strings.Contains(v, "/") {
			return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("invalid feature group %s %q", name, v)).
				WithDetail(name, v)
		}
	}
	return nil
}

// Layout resolves keys and URLs from the storage configuration.
type Layout struct {
	Bucket      string
	StageBucket string
	Root        string
	StageRoot   string
	Database    string
}

// New builds a layout from configuration.
func New(cfg *config.Config) Layout {
	return Layout{
		Bucket:      cfg.Storage.Bucket,
		StageBucket: cfg.Storage.StageBucket,
		Root:        cfg.Storage.Root,
		StageRoot:   cfg.Storage.StageRoot,
		Database:    cfg.Catalog.Database,
	}
}

// SchemaRelPath is client/app/entity/schema/version/schema.json.
func SchemaRelPath(fg FeatureGroup) string {
	return stringutil.JoinKey(fg.Client, fg.App, fg.Entity, schemaFolder, fg.Version, SchemaFile)
}

// SchemaKey is the production key of the schema descriptor.
func (l Layout) SchemaKey(fg FeatureGroup) string {
	return stringutil.JoinKey(l.Root, SchemaRelPath(fg))
}

// SchemaStageKey is the staging key of the schema descriptor.
func (l Layout) SchemaStageKey(fg FeatureGroup) string {
	return stringutil.JoinKey(l.StageRoot, uploadsFolder, schemaFolder, SchemaRelPath(fg))
}

// VersionsPrefix is the key prefix under which every version's schema
// descriptor of client/app/entity lives.
func (l Layout) VersionsPrefix(client, app, entity string) string {
	return stringutil.JoinKey(l.Root, client, app, entity, schemaFolder)
}

// DataRoot is the production key prefix of a feature group's data.
func (l Layout) DataRoot(fg FeatureGroup) string {
	return dataRoot(l.Root, fg)
}

// PartitionPrefix is the production key prefix of one partition.
func (l Layout) PartitionPrefix(fg FeatureGroup, suffix string) string {
	return stringutil.JoinKey(l.DataRoot(fg), suffix)
}

// DataFileKey is the production key of a partition file.
func (l Layout) DataFileKey(fg FeatureGroup, suffix, file string) string {
	return stringutil.JoinKey(l.PartitionPrefix(fg, suffix), file)
}

// StageUploadRoot returns the staging root of one upload, nested under a
// fresh random id so that concurrent uploads never share staged keys.
func (l Layout) StageUploadRoot() string {
	return stringutil.JoinKey(l.StageRoot, uploadsFolder, dataFolder, uuid.NewString())
}

// StagePartitionPrefix is the staging twin of PartitionPrefix under an
// upload root.
func (l Layout) StagePartitionPrefix(uploadRoot string, fg FeatureGroup, suffix string) string {
	return stringutil.JoinKey(dataRoot(uploadRoot, fg), suffix)
}

// TableName is the catalog table of a feature group.
func TableName(fg FeatureGroup) string {
	return stringutil.Sanitise(strings.Join([]string{fg.Client, fg.App, fg.Entity, fg.Version}, "_"))
}

// TableLocation is the catalog location of the table: the data root URL.
func (l Layout) TableLocation(fg FeatureGroup) string {
	return FolderURL(l.Bucket, l.DataRoot(fg))
}

// PartitionLocation is the catalog location of one partition.
func (l Layout) PartitionLocation(fg FeatureGroup, suffix string) string {
	return FolderURL(l.Bucket, l.PartitionPrefix(fg, suffix))
}

// QueryResultURL returns a fresh folder for one query's results.
func (l Layout) QueryResultURL() string {
	return URL(l.StageBucket, stringutil.JoinKey(l.StageRoot, queryFolder, uuid.NewString()))
}

func dataRoot(root string, fg FeatureGroup) string {
	return stringutil.JoinKey(root, fg.Client, fg.App, fg.Entity, dataFolder, fg.Version)
}

// URL renders s3://bucket/key.
func URL(bucket, key string) string {
	return "s3://" + bucket + "/" + strings.TrimLeft(key, "/")
}

// FolderURL renders s3://bucket/key/ with exactly one trailing separator.
func FolderURL(bucket, key string) string {
	return strings.TrimRight(URL(bucket, key), "/") + "/"
}

// ParseURL splits s3://bucket/key.
func ParseURL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", errors.Newf(errors.ErrMalformedPath, "not an s3:// url: %q", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.Newf(errors.ErrMalformedPath, "no bucket in %q", u)
	}
	return bucket, key, nil
}
