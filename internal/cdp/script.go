package cdp

// Expressions evaluated in the page. The collector tags every frame with a
// stable ref attribute on first sight so later passes and mitigation find the
// same element again; refs survive because the attribute lives on the
// element, not in the agent.

const collectFramesJS = `(() => {
  const out = [];
  let seq = window.__yspSeq || 0;
  for (const f of document.querySelectorAll('iframe, frame')) {
    let ref = f.getAttribute('data-ysp-ref');
    if (!ref) {
      ref = 'f' + (++seq);
      f.setAttribute('data-ysp-ref', ref);
    }
    const r = f.getBoundingClientRect();
    const c = {
      ref: ref,
      src: f.getAttribute('src') || '',
      width: Math.round(r.width),
      height: Math.round(r.height),
      sameOrigin: false,
      markup: '',
      noticed: false
    };
    try {
      if (f.contentDocument && f.contentDocument.documentElement) {
        c.markup = f.contentDocument.documentElement.outerHTML;
        c.sameOrigin = true;
      }
    } catch (e) {
      // cross-origin: not classifiable, not an error
    }
    const prev = f.previousElementSibling;
    if (prev && prev.hasAttribute('data-ysp-notice')) {
      c.noticed = true;
    }
    out.push(c);
  }
  window.__yspSeq = seq;
  return out;
})()`

// neutralizeJS takes four JSON-quoted arguments: ref, category, reason,
// timestamp. It reports 'gone' for a frame that left the DOM and 'already'
// for one that carries a notice, so repeated mitigation never stacks notices.
const neutralizeJS = `(() => {
  const ref = %s, category = %s, reason = %s, stamp = %s;
  const sel = '[data-ysp-ref=' + JSON.stringify(ref) + ']';
  const f = document.querySelector('iframe' + sel + ', frame' + sel);
  if (!f || !f.parentNode) return 'gone';
  f.setAttribute('src', 'about:blank');
  f.style.display = 'none';
  const prev = f.previousElementSibling;
  if (prev && prev.hasAttribute('data-ysp-notice')) return 'already';
  const n = document.createElement('div');
  n.setAttribute('data-ysp-notice', category);
  const accent = category === 'engine' ? '#c0392b' : '#7f8c8d';
  const bg = category === 'engine' ? '#fdf2f0' : '#f4f6f6';
  n.style.cssText = 'padding:12px;margin:4px 0;border-left:4px solid ' + accent +
    ';background:' + bg + ';color:#2c3e50;font:13px/1.4 sans-serif;';
  n.textContent = reason + ' (' + stamp + ')';
  f.parentNode.insertBefore(n, f);
  return 'blocked';
})()`
