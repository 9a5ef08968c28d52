package sqlinline

const QInsertUsageEvent = `--sql 3b1f2a84-6c5d-4e2b-9f10-8d47c1a9e502
insert into usage_events(id, owner_scope, event_type, success, country, locale, created_at, properties)
values (gen_random_uuid(), $1::text, $2::text, $3::boolean, nullif($4::text, ''), nullif($5::text, ''), now(), coalesce($6::jsonb, '{}'::jsonb));
`

const QUsageSummary24h = `--sql 9e6d0c41-2b78-4f3a-a1d5-64f8b2c7d913
select
    count(*) filter (where event_type = 'tryon_submit')                          as submitted,
    count(*) filter (where event_type = 'tryon_submit' and success = false)      as submit_failed,
    count(*) filter (where event_type = 'tryon_quota_denied')                    as quota_denied,
    count(*) filter (where event_type = 'tryon_completed')                       as completed
from usage_events
where created_at >= now() - interval '24 hours';
`
