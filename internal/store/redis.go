package store

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    redis "github.com/redis/go-redis/v9"

    "github.com/local/ocrextractor/internal/model"
)

// Redis keeps job state in hashes and lists that expire after ttl.
type Redis struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return &Redis{client: c, keyNS: "job", ttl: ttl}, nil
}

func (s *Redis) statusKey(jobID string) string   { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }
func (s *Redis) logsKey(jobID string) string     { return fmt.Sprintf("%s:%s:logs", s.keyNS, jobID) }
func (s *Redis) indexKey(jobID string) string    { return fmt.Sprintf("%s:%s:artifacts", s.keyNS, jobID) }
func (s *Redis) artifactKey(jobID, name string) string {
    return fmt.Sprintf("%s:%s:artifact:%s", s.keyNS, jobID, name)
}

func (s *Redis) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
    if s.ttl <= 0 { return }
    for _, k := range keys {
        pipe.Expire(ctx, k, s.ttl)
    }
}

func (s *Redis) Set(ctx context.Context, jobID string, st Status) error {
    m := map[string]interface{}{
        "status":   st.Status,
        "progress": st.Progress,
        "message":  st.Message,
        "degraded": strconv.FormatBool(st.Degraded),
        "error":    st.Error,
    }
    if st.Start != nil { m["start"] = st.Start.Format(time.RFC3339Nano) }
    if st.End != nil { m["end"] = st.End.Format(time.RFC3339Nano) }
    if st.Artifacts != nil {
        b, err := json.Marshal(st.Artifacts)
        if err != nil { return err }
        m["artifacts"] = string(b)
    }
    if st.Metadata != nil {
        b, err := json.Marshal(st.Metadata)
        if err != nil { return err }
        m["metadata"] = string(b)
    }
    key := s.statusKey(jobID)
    _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        pipe.HSet(ctx, key, m)
        s.expire(ctx, pipe, key)
        return nil
    })
    return err
}

func (s *Redis) Get(ctx context.Context, jobID string) (Status, bool, error) {
    res, err := s.client.HGetAll(ctx, s.statusKey(jobID)).Result()
    if err != nil { return Status{}, false, err }
    if len(res) == 0 { return Status{}, false, nil }
    st := Status{}
    st.Status = res["status"]
    st.Message = res["message"]
    st.Error = res["error"]
    st.Degraded, _ = strconv.ParseBool(res["degraded"])
    if p, ok := res["progress"]; ok && p != "" {
        // ignore parse error; default 0
        st.Progress, _ = strconv.Atoi(p)
    }
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.End = &t }
    }
    if v := res["artifacts"]; v != "" {
        _ = json.Unmarshal([]byte(v), &st.Artifacts)
    }
    if v := res["metadata"]; v != "" {
        _ = json.Unmarshal([]byte(v), &st.Metadata)
    }
    return st, true, nil
}

func (s *Redis) AppendLog(ctx context.Context, jobID string, line LogLine) error {
    b, err := json.Marshal(line)
    if err != nil { return err }
    key := s.logsKey(jobID)
    _, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        pipe.RPush(ctx, key, b)
        s.expire(ctx, pipe, key)
        return nil
    })
    return err
}

func (s *Redis) Logs(ctx context.Context, jobID string) ([]LogLine, error) {
    raw, err := s.client.LRange(ctx, s.logsKey(jobID), 0, -1).Result()
    if err != nil { return nil, err }
    out := make([]LogLine, 0, len(raw))
    for _, r := range raw {
        var l LogLine
        if err := json.Unmarshal([]byte(r), &l); err != nil { continue }
        out = append(out, l)
    }
    return out, nil
}

func (s *Redis) SaveArtifacts(ctx context.Context, jobID string, arts []model.Artifact) error {
    index := s.indexKey(jobID)
    _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        for _, a := range arts {
            key := s.artifactKey(jobID, a.Name)
            pipe.HSet(ctx, key, map[string]interface{}{
                "content":    a.Content,
                "media_type": a.MediaType,
                "chunk":      a.Chunk,
            })
            pipe.SAdd(ctx, index, key)
            s.expire(ctx, pipe, key)
        }
        s.expire(ctx, pipe, index)
        return nil
    })
    return err
}

func (s *Redis) GetArtifact(ctx context.Context, jobID, name string) (model.Artifact, error) {
    res, err := s.client.HGetAll(ctx, s.artifactKey(jobID, name)).Result()
    if err != nil { return model.Artifact{}, err }
    if len(res) == 0 { return model.Artifact{}, ErrNotFound }
    chunk, _ := strconv.Atoi(res["chunk"])
    return model.Artifact{Name: name, MediaType: res["media_type"], Chunk: chunk, Content: []byte(res["content"])}, nil
}

// Release drops every key written for the job.
func (s *Redis) Release(ctx context.Context, jobID string) error {
    keys, err := s.client.SMembers(ctx, s.indexKey(jobID)).Result()
    if err != nil && err != redis.Nil { return err }
    keys = append(keys, s.indexKey(jobID), s.statusKey(jobID), s.logsKey(jobID))
    return s.client.Del(ctx, keys...).Err()
}

func (s *Redis) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
func (s *Redis) Close() error                  { return s.client.Close() }
