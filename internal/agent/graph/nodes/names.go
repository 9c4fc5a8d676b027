package nodes

const (
	NodeClassify       = "classify"
	NodeSchemaListing  = "schema_listing"
	NodeGeneric        = "generic"
	NodeUnclassifiable = "unclassifiable"
	NodeResolve        = "resolve_slots"
	NodeSynthesize     = "synthesize_sql"
	NodeExecute        = "execute_sql"
	NodeFormat         = "format_response"
)
