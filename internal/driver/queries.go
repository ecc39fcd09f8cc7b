package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Video(id);",
	"CREATE INDEX ON :Channel(id);",
	"CREATE INDEX ON :Segment(video_id);",
	"CREATE INDEX ON :Entity(video_id);",
	"CREATE INDEX ON :Entity(type);",
}

const (
	SaveVideoQuery = `
		MERGE (v:Video {id: $id})
		SET v.title = $title,
			v.description = $description,
			v.url = $url,
			v.thumbnail_url = $thumbnail_url,
			v.duration = $duration,
			v.published_at = $published_at,
			v.ingested_at = $ingested_at
		WITH v
		MERGE (c:Channel {id: $channel_id})
		SET c.name = $channel
		MERGE (c)-[:PUBLISHED]->(v)
		RETURN v.id AS id
	`

	ClearVideoChildrenQuery = `
		MATCH (n)
		WHERE (n:Segment OR n:Entity) AND n.video_id = $id
		DETACH DELETE n
	`

	SaveSegmentsQuery = `
		MATCH (v:Video {id: $id})
		UNWIND $segments AS s
		CREATE (n:Segment {
			video_id: $id,
			sequence: s.sequence,
			text: s.text,
			start_time: s.start_time,
			end_time: s.end_time
		})
		CREATE (n)-[:PART_OF]->(v)
	`

	SaveEntitiesQuery = `
		MATCH (v:Video {id: $id})
		UNWIND $entities AS e
		CREATE (n:Entity {
			video_id: $id,
			sequence: e.sequence,
			type: e.type,
			text: e.text,
			start_time: e.start_time,
			end_time: e.end_time,
			confidence: e.confidence
		})
		CREATE (n)-[:EXTRACTED_FROM]->(v)
	`

	DeleteVideoQuery = `
		MATCH (n)
		WHERE (n:Segment OR n:Entity) AND n.video_id = $id
		DETACH DELETE n
		WITH count(*) AS removed
		MATCH (v:Video {id: $id})
		DETACH DELETE v
	`
)
