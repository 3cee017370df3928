// Package schema declares the service's entities and creates their backing
// tables. Declarations are the head-state snapshot of the schema: applying
// the full migration plan from zero must produce the same structure, and a
// test holds the two in sync.
package schema

// ColType is an abstract column type rendered per dialect.
type ColType int

const (
	// ColSerial is an auto-incrementing integer primary key.
	ColSerial ColType = iota
	ColInt
	ColText
	ColVarchar
	ColBool
	ColFloat
	ColTimestamp
)

// DefaultNow marks a timestamp column that defaults to the current time.
const DefaultNow = "now"

// Column is one column of an entity declaration.
type Column struct {
	Name    string
	Type    ColType
	Size    int    // VARCHAR length; ignored for other types
	NotNull bool
	Unique  bool
	Default string // raw literal, or DefaultNow for timestamps
	Ref     string // referenced table for foreign keys, e.g. "users"
}

// Entity is one declared table.
type Entity struct {
	Name       string
	Columns    []Column
	PrimaryKey []string // composite primary key; empty when a ColSerial column exists
}

// ByName returns the declared entity with the given table name.
func ByName(name string) (Entity, bool) {
	for _, e := range Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Entities is the declared schema in creation order: referenced tables come
// before their referrers so foreign keys resolve on first-time creation.
// Drops happen in reverse order.
var Entities = []Entity{
	{
		Name: "users",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "email", Type: ColVarchar, Size: 255, NotNull: true, Unique: true},
			{Name: "full_name", Type: ColVarchar, Size: 100, NotNull: true},
			{Name: "hashed_password", Type: ColVarchar, Size: 255, NotNull: true},
			{Name: "profile_picture", Type: ColVarchar, Size: 255},
			{Name: "bio", Type: ColText},
			{Name: "role", Type: ColVarchar, Size: 20, NotNull: true, Default: "'user'"},
			{Name: "is_active", Type: ColBool, NotNull: true, Default: "TRUE"},
			{Name: "is_verified", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
			{Name: "updated_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "categories",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "name", Type: ColVarchar, Size: 100, NotNull: true, Unique: true},
			{Name: "slug", Type: ColVarchar, Size: 100, Unique: true},
		},
	},
	{
		Name: "courses",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "title", Type: ColVarchar, Size: 200, NotNull: true},
			{Name: "slug", Type: ColVarchar, Size: 200, Unique: true},
			{Name: "description", Type: ColText},
			{Name: "price", Type: ColFloat, NotNull: true},
			{Name: "discount_price", Type: ColFloat},
			{Name: "thumbnail", Type: ColVarchar, Size: 255},
			{Name: "trailer_video", Type: ColVarchar, Size: 255},
			{Name: "level", Type: ColVarchar, Size: 20},
			{Name: "language", Type: ColVarchar, Size: 50},
			{Name: "duration_minutes", Type: ColInt},
			{Name: "featured", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "instructor_id", Type: ColInt, Ref: "users"},
			{Name: "published", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
			{Name: "updated_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "course_category",
		Columns: []Column{
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
			{Name: "category_id", Type: ColInt, NotNull: true, Ref: "categories"},
		},
		PrimaryKey: []string{"course_id", "category_id"},
	},
	{
		Name: "chapters",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "title", Type: ColVarchar, Size: 200, NotNull: true},
			{Name: "description", Type: ColText},
			{Name: "position", Type: ColInt, NotNull: true},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
		},
	},
	{
		Name: "lessons",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "title", Type: ColVarchar, Size: 200, NotNull: true},
			{Name: "content_type", Type: ColVarchar, Size: 20, NotNull: true},
			{Name: "content", Type: ColText},
			{Name: "video_url", Type: ColVarchar, Size: 255},
			{Name: "duration_minutes", Type: ColInt},
			{Name: "position", Type: ColInt, NotNull: true},
			{Name: "is_preview", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "chapter_id", Type: ColInt, NotNull: true, Ref: "chapters"},
		},
	},
	{
		Name: "user_lesson_progress",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "user_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "lesson_id", Type: ColInt, NotNull: true, Ref: "lessons"},
			{Name: "completed", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "completed_at", Type: ColTimestamp},
		},
	},
	{
		Name: "enrollments",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "student_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
			{Name: "enrolled_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
			{Name: "completed", Type: ColBool, NotNull: true, Default: "FALSE"},
		},
	},
	{
		Name: "reviews",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "user_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
			{Name: "rating", Type: ColInt, NotNull: true},
			{Name: "comment", Type: ColText},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "wishlist",
		Columns: []Column{
			{Name: "user_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
		},
		PrimaryKey: []string{"user_id", "course_id"},
	},
	{
		Name: "cart_items",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "user_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
			{Name: "added_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "orders",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "user_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "total_amount", Type: ColFloat, NotNull: true},
			{Name: "status", Type: ColVarchar, Size: 20, NotNull: true, Default: "'pending'"},
			{Name: "payment_provider", Type: ColVarchar, Size: 20},
			{Name: "payment_reference", Type: ColVarchar, Size: 100},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "order_items",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "order_id", Type: ColInt, NotNull: true, Ref: "orders"},
			{Name: "course_id", Type: ColInt, NotNull: true, Ref: "courses"},
			{Name: "price", Type: ColFloat, NotNull: true},
		},
	},
	{
		Name: "blog_posts",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "title", Type: ColVarchar, Size: 200, NotNull: true},
			{Name: "slug", Type: ColVarchar, Size: 200, Unique: true},
			{Name: "content", Type: ColText, NotNull: true},
			{Name: "author_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "published", Type: ColBool, NotNull: true, Default: "FALSE"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
			{Name: "updated_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
	{
		Name: "comments",
		Columns: []Column{
			{Name: "id", Type: ColSerial},
			{Name: "content", Type: ColText, NotNull: true},
			{Name: "author_id", Type: ColInt, NotNull: true, Ref: "users"},
			{Name: "post_id", Type: ColInt, NotNull: true, Ref: "blog_posts"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: DefaultNow},
		},
	},
}
